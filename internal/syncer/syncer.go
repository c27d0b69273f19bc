// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github-portfolio-stats/internal/model"
)

const (
	// Number of users to refresh in parallel
	concurrency = 5
)

// Refresher is the part of portfolio.Service the syncer drives.
type Refresher interface {
	RefreshGitHubStats(ctx context.Context, username string) (model.GitHubStats, error)
	RefreshUserProjects(ctx context.Context, username string) ([]model.Project, error)
}

// Syncer keeps the cache warm for a fixed set of users so page loads are
// served without waiting on GitHub.
type Syncer struct {
	refresher    Refresher
	logger       *slog.Logger
	usernames    []string
	syncInterval time.Duration
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(refresher Refresher, logger *slog.Logger, usernames []string, interval time.Duration) (*Syncer, error) {
	parsed, err := parseUsernames(usernames)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		refresher:    refresher,
		logger:       logger,
		usernames:    parsed,
		syncInterval: interval,
	}, nil
}

// Start refreshes every user immediately and then on each tick until ctx is done.
func (s *Syncer) Start(ctx context.Context) {
	if len(s.usernames) == 0 {
		s.logger.Info("No usernames to warm, syncer idle")
		return
	}
	s.logger.Info("Starting syncer", "interval", s.syncInterval.String(), "concurrency", concurrency, "users", len(s.usernames))
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.RunSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.RunSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// RunSyncCycle refreshes stats and projects for all configured users concurrently.
// Individual failures are logged and do not stop the cycle.
func (s *Syncer) RunSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, username := range s.usernames {
		username := username
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s.syncUser(gctx, username)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Sync cycle finished with an error", "error", err)
	} else {
		s.logger.Info("Sync cycle finished")
	}
}

func (s *Syncer) syncUser(ctx context.Context, username string) {
	logger := s.logger.With("username", username)

	if _, err := s.refresher.RefreshGitHubStats(ctx, username); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Failed to refresh stats", "error", err)
		}
	} else {
		logger.Info("Refreshed stats")
	}

	found, err := s.refresher.RefreshUserProjects(ctx, username)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Failed to refresh projects", "error", err)
		}
		return
	}
	logger.Info("Refreshed projects", "count", len(found))
}

// parseUsernames trims, validates and de-duplicates the configured usernames.
func parseUsernames(usernames []string) ([]string, error) {
	seen := make(map[string]bool, len(usernames))
	var out []string
	for _, u := range usernames {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := model.ValidateUsername(u); err != nil {
			return nil, err
		}
		key := strings.ToLower(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out, nil
}
