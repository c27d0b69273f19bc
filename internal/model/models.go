// internal/model/models.go
package model

import (
	"time"

	custom_errors "github-portfolio-stats/internal/errors"
)

// Event types that carry a non-default contribution weight.
const (
	PushEvent        = "PushEvent"
	CreateEvent      = "CreateEvent"
	PullRequestEvent = "PullRequestEvent"
)

// maxUsernameLength is GitHub's limit on login length.
const maxUsernameLength = 39

// Profile is the subset of a GitHub user the stats panel needs.
type Profile struct {
	Login       string
	PublicRepos int
	Followers   int
	Following   int
}

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	ID          int64
	Name        string
	Description string
	HTMLURL     string
	Language    string
	Topics      []string
	Fork        bool
	Stars       int
}

// Event is a public activity event. Size is only set for push events that report one.
type Event struct {
	Type      string
	CreatedAt time.Time
	Size      *int
}

// GitHubStats is the aggregate shown on the stats panel.
type GitHubStats struct {
	Repos           int            `json:"repos"`
	Followers       int            `json:"followers"`
	Following       int            `json:"following"`
	TotalStars      int            `json:"totalStars"`
	LastPush        *time.Time     `json:"lastPush"`
	TotalCommits    int            `json:"totalCommits"`
	ContributionMap map[string]int `json:"contributionMap"`
}

// Project is a repository prepared for display.
type Project struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
	GithubLink  string   `json:"githubLink"`
}

// ContributionDay is one cell of the contribution heatmap.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// ValidateUsername checks a login against GitHub's rules: alphanumerics and
// single hyphens, not starting or ending with a hyphen, at most 39 characters.
func ValidateUsername(username string) error {
	if username == "" {
		return &custom_errors.ErrInvalidUsername{Username: username, Reason: "cannot be empty"}
	}
	if len(username) > maxUsernameLength {
		return &custom_errors.ErrInvalidUsername{Username: username, Reason: "too long"}
	}
	prevHyphen := false
	for i, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			prevHyphen = false
		case r == '-':
			if i == 0 || prevHyphen || i == len(username)-1 {
				return &custom_errors.ErrInvalidUsername{Username: username, Reason: "hyphens must separate alphanumeric characters"}
			}
			prevHyphen = true
		default:
			return &custom_errors.ErrInvalidUsername{Username: username, Reason: "only alphanumeric characters and hyphens are allowed"}
		}
	}
	return nil
}
