package portfolio

import (
	"context"

	"github-portfolio-stats/internal/model"
)

// ProjectsOrFallback returns the user's selected projects, or a single
// placeholder card pointing at their profile when none are available.
func (s *Service) ProjectsOrFallback(ctx context.Context, username string) []model.Project {
	if found := s.FetchUserProjects(ctx, username); len(found) > 0 {
		return found
	}
	return FallbackProjects(username)
}

// FallbackProjects is shown when GitHub has nothing to offer.
func FallbackProjects(username string) []model.Project {
	return []model.Project{
		{
			ID:          "1",
			Title:       "Connect GitHub",
			Description: "Connect your GitHub account in the service config to see your actual projects here automatically.",
			TechStack:   []string{"Go", "API", "Config"},
			GithubLink:  "https://github.com/" + username,
		},
	}
}
