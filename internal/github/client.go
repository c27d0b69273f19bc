// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-portfolio-stats/internal/errors"
	"github-portfolio-stats/internal/model"
)

// DefaultPerPage is the page size used for repository and event listings.
const DefaultPerPage = 100

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root, e.g. a test server
// or a GitHub Enterprise instance.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parsing GitHub base URL: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// NewClient creates and configures a new Client instance.
// An empty token yields an unauthenticated client; timeout bounds every request.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = timeout

	c := &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FetchProfile fetches the user's public profile.
func (c *Client) FetchProfile(ctx context.Context, username string) (model.Profile, error) {
	user, resp, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return model.Profile{}, classify("fetch profile", username, resp, err)
	}
	return model.Profile{
		Login:       user.GetLogin(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
	}, nil
}

// FetchRepositories fetches the first page of the user's repositories in API order.
func (c *Client) FetchRepositories(ctx context.Context, username string, perPage int) ([]model.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: perPageOrDefault(perPage)},
	}
	repos, resp, err := c.gh.Repositories.ListByUser(ctx, username, opts)
	if err != nil {
		return nil, classify("fetch repositories", username, resp, err)
	}

	result := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}
		result = append(result, toInternalRepository(r))
	}
	c.logger.Debug("Fetched repositories", "username", username, "count", len(result))
	return result, nil
}

// FetchPublicEvents fetches the user's most recent public events, newest first.
func (c *Client) FetchPublicEvents(ctx context.Context, username string, perPage int) ([]model.Event, error) {
	opts := &github.ListOptions{PerPage: perPageOrDefault(perPage)}
	events, resp, err := c.gh.Activity.ListEventsPerformedByUser(ctx, username, true, opts)
	if err != nil {
		return nil, classify("fetch public events", username, resp, err)
	}

	result := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e == nil || e.CreatedAt == nil {
			c.logger.Debug("Skipping event without timestamp", "username", username, "type", e.GetType())
			continue
		}
		result = append(result, toInternalEvent(e))
	}
	c.logger.Debug("Fetched public events", "username", username, "count", len(result))
	return result, nil
}

// SearchTotalCommits asks the commit search API for the user's total authored
// commits. Any error means the count is unavailable.
func (c *Client) SearchTotalCommits(ctx context.Context, username string) (int, error) {
	opts := &github.SearchOptions{Sort: "author-date", Order: "desc"}
	result, resp, err := c.gh.Search.Commits(ctx, "author:"+username, opts)
	if err != nil {
		return 0, classify("search commits", username, resp, err)
	}
	if result.Total == nil {
		return 0, &custom_errors.FetchError{
			Kind:     custom_errors.ErrMalformedResponse,
			Op:       "search commits",
			Username: username,
			Err:      errors.New("response has no total_count"),
		}
	}
	return result.GetTotal(), nil
}

// classify maps go-github and transport errors onto the error taxonomy.
func classify(op, username string, resp *github.Response, err error) error {
	fe := &custom_errors.FetchError{Kind: custom_errors.ErrAPI, Op: op, Username: username, Err: err}
	if resp != nil && resp.Response != nil {
		fe.StatusCode = resp.StatusCode
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var ghErr *github.ErrorResponse
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		fe.Kind = custom_errors.ErrRateLimited
	case errors.As(err, &ghErr) && ghErr.Response != nil:
		fe.StatusCode = ghErr.Response.StatusCode
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			fe.Kind = custom_errors.ErrNotFound
		case http.StatusForbidden, http.StatusTooManyRequests:
			fe.Kind = custom_errors.ErrRateLimited
		}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		fe.Kind = custom_errors.ErrMalformedResponse
	}
	return fe
}

func perPageOrDefault(perPage int) int {
	if perPage <= 0 || perPage > DefaultPerPage {
		return DefaultPerPage
	}
	return perPage
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		HTMLURL:     r.GetHTMLURL(),
		Language:    r.GetLanguage(),
		Topics:      r.Topics,
		Fork:        r.GetFork(),
		Stars:       r.GetStargazersCount(),
	}
}

// pushPayload is the only part of an event payload the aggregator reads.
type pushPayload struct {
	Size *int `json:"size"`
}

// toInternalEvent translates a github.Event object to our internal model.Event.
// The push size is read from the raw payload so other event kinds never fail to parse.
func toInternalEvent(e *github.Event) model.Event {
	ev := model.Event{
		Type:      e.GetType(),
		CreatedAt: e.GetCreatedAt().Time,
	}
	if ev.Type == model.PushEvent && e.RawPayload != nil {
		var p pushPayload
		if err := json.Unmarshal(*e.RawPayload, &p); err == nil {
			ev.Size = p.Size
		}
	}
	return ev
}
