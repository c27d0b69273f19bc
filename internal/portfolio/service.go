// Package portfolio is the entry point used by the presentation layer. Both
// operations cache their results and never return an error: failures degrade
// to zeroed stats or an empty project list.
package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github-portfolio-stats/internal/cache"
	custom_errors "github-portfolio-stats/internal/errors"
	"github-portfolio-stats/internal/github"
	"github-portfolio-stats/internal/model"
	"github-portfolio-stats/internal/projects"
	"github-portfolio-stats/internal/stats"
)

// Cache namespaces. Bumping a namespace invalidates every entry written under the old one.
const (
	StatsNamespace    = "github_stats_v2"
	ProjectsNamespace = "github_projects"
)

// DefaultTTL applies when a TTL is not configured.
const DefaultTTL = time.Hour

// GitHub is the subset of *github.Client the service calls.
type GitHub interface {
	FetchProfile(ctx context.Context, username string) (model.Profile, error)
	FetchRepositories(ctx context.Context, username string, perPage int) ([]model.Repository, error)
	FetchPublicEvents(ctx context.Context, username string, perPage int) ([]model.Event, error)
	SearchTotalCommits(ctx context.Context, username string) (int, error)
}

// Service orchestrates cache lookups, GitHub fetches and aggregation.
type Service struct {
	gh          GitHub
	cache       *cache.Cache
	logger      *slog.Logger
	statsTTL    time.Duration
	projectsTTL time.Duration
	inflight    singleflight.Group
}

// NewService creates a Service. Non-positive TTLs fall back to DefaultTTL.
func NewService(gh GitHub, c *cache.Cache, logger *slog.Logger, statsTTL, projectsTTL time.Duration) *Service {
	if statsTTL <= 0 {
		statsTTL = DefaultTTL
	}
	if projectsTTL <= 0 {
		projectsTTL = DefaultTTL
	}
	return &Service{
		gh:          gh,
		cache:       c,
		logger:      logger,
		statsTTL:    statsTTL,
		projectsTTL: projectsTTL,
	}
}

// FetchGitHubStats returns cached stats when fresh, otherwise fetches and caches
// them. If the profile cannot be fetched the zero stats are returned and nothing
// is cached.
func (s *Service) FetchGitHubStats(ctx context.Context, username string) model.GitHubStats {
	logger := s.logger.With("username", username)
	if err := model.ValidateUsername(username); err != nil {
		logger.Warn("Rejecting stats request", "error", err)
		return stats.Zero()
	}

	var cached model.GitHubStats
	if s.cache.Get(ctx, cache.Key(StatsNamespace, username), s.statsTTL, &cached) {
		logger.Debug("Serving stats from cache")
		if cached.ContributionMap == nil {
			cached.ContributionMap = map[string]int{}
		}
		return cached
	}

	result, err := s.RefreshGitHubStats(ctx, username)
	if err != nil {
		logger.Warn("GitHub stats unavailable, returning zeroed stats", "error", err)
		return stats.Zero()
	}
	return result
}

// RefreshGitHubStats fetches stats without consulting the cache and stores the
// result. It returns an error when the profile fetch fails or ctx is done.
func (s *Service) RefreshGitHubStats(ctx context.Context, username string) (model.GitHubStats, error) {
	v, err, _ := s.inflight.Do(StatsNamespace+"/"+username, func() (any, error) {
		result, err := s.loadStats(ctx, username)
		if err != nil {
			return nil, err
		}
		s.store(ctx, cache.Key(StatsNamespace, username), result)
		return result, nil
	})
	if err != nil {
		return model.GitHubStats{}, err
	}
	return v.(model.GitHubStats), nil
}

// loadStats fetches the four independent inputs in parallel. A profile failure
// or a cancelled context aborts; every other failure degrades to an empty input.
func (s *Service) loadStats(ctx context.Context, username string) (model.GitHubStats, error) {
	logger := s.logger.With("username", username)
	var in stats.Input

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.gh.FetchProfile(gctx, username)
		if err != nil {
			return err
		}
		in.Profile = profile
		return nil
	})
	g.Go(func() error {
		repos, err := s.gh.FetchRepositories(gctx, username, github.DefaultPerPage)
		if err != nil {
			if isContextErr(err) {
				return err
			}
			logDegraded(logger, "repositories", err)
			return nil
		}
		in.Repositories = repos
		return nil
	})
	g.Go(func() error {
		events, err := s.gh.FetchPublicEvents(gctx, username, github.DefaultPerPage)
		if err != nil {
			if isContextErr(err) {
				return err
			}
			logDegraded(logger, "events", err)
			return nil
		}
		in.Events = events
		return nil
	})
	g.Go(func() error {
		total, err := s.gh.SearchTotalCommits(gctx, username)
		if err != nil {
			if isContextErr(err) {
				return err
			}
			logger.Info("Commit search unavailable, falling back to recent push events", "error", err)
			return nil
		}
		in.SearchTotal = &total
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.GitHubStats{}, err
	}
	// Partial inputs from a cancelled request must not be cached as real stats.
	if err := ctx.Err(); err != nil {
		return model.GitHubStats{}, err
	}

	result := stats.Aggregate(in)
	logger.Info("Aggregated GitHub stats",
		"repos", result.Repos,
		"total_stars", result.TotalStars,
		"total_commits", result.TotalCommits,
		"active_days", len(result.ContributionMap),
	)
	return result, nil
}

// FetchUserProjects returns cached projects when fresh, otherwise fetches and
// caches them. An empty slice means the caller should show fallback projects.
func (s *Service) FetchUserProjects(ctx context.Context, username string) []model.Project {
	logger := s.logger.With("username", username)
	if err := model.ValidateUsername(username); err != nil {
		logger.Warn("Rejecting projects request", "error", err)
		return []model.Project{}
	}

	var cached []model.Project
	if s.cache.Get(ctx, cache.Key(ProjectsNamespace, username), s.projectsTTL, &cached) {
		logger.Debug("Serving projects from cache")
		if cached == nil {
			cached = []model.Project{}
		}
		return cached
	}

	result, err := s.RefreshUserProjects(ctx, username)
	if err != nil {
		logger.Warn("GitHub projects unavailable, returning empty list", "error", err)
		return []model.Project{}
	}
	return result
}

// RefreshUserProjects fetches repositories without consulting the cache,
// selects the projects and stores them.
func (s *Service) RefreshUserProjects(ctx context.Context, username string) ([]model.Project, error) {
	v, err, _ := s.inflight.Do(ProjectsNamespace+"/"+username, func() (any, error) {
		repos, err := s.gh.FetchRepositories(ctx, username, github.DefaultPerPage)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := projects.Select(repos)
		s.store(ctx, cache.Key(ProjectsNamespace, username), result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Project), nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("Failed to write cache entry", "key", key, "error", err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func logDegraded(logger *slog.Logger, what string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, custom_errors.ErrNotFound) {
		level = slog.LevelInfo
	}
	logger.Log(context.Background(), level, "Failed to fetch "+what+", using empty set", "error", err)
}
