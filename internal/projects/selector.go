// Package projects picks the repositories shown in the portfolio's projects grid.
package projects

import (
	"slices"
	"strconv"
	"strings"

	"github-portfolio-stats/internal/model"
)

const (
	// MaxProjects is the size of the projects grid.
	MaxProjects = 4
	// MaxTechStack is the number of labels shown per project.
	MaxTechStack = 3

	DefaultDescription = "No description provided."
	DefaultTechLabel   = "Development"
)

var titleReplacer = strings.NewReplacer("-", " ", "_", " ")

// Select drops forks, orders by stars (stable, so ties keep API order) and
// converts the top MaxProjects repositories. The input is not modified.
func Select(repos []model.Repository) []model.Project {
	originals := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			originals = append(originals, r)
		}
	}

	slices.SortStableFunc(originals, func(a, b model.Repository) int {
		return b.Stars - a.Stars
	})

	if len(originals) > MaxProjects {
		originals = originals[:MaxProjects]
	}

	out := make([]model.Project, 0, len(originals))
	for _, r := range originals {
		out = append(out, toProject(r))
	}
	return out
}

func toProject(r model.Repository) model.Project {
	description := r.Description
	if description == "" {
		description = DefaultDescription
	}
	return model.Project{
		ID:          strconv.FormatInt(r.ID, 10),
		Title:       titleReplacer.Replace(r.Name),
		Description: description,
		TechStack:   techStack(r),
		GithubLink:  r.HTMLURL,
	}
}

func techStack(r model.Repository) []string {
	var stack []string
	switch {
	case len(r.Topics) > 0:
		stack = r.Topics
	case r.Language != "":
		stack = []string{r.Language}
	default:
		stack = []string{DefaultTechLabel}
	}
	if len(stack) > MaxTechStack {
		stack = stack[:MaxTechStack]
	}
	return slices.Clone(stack)
}
