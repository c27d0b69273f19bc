// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "github-portfolio-stats/internal/errors"
	"github-portfolio-stats/internal/model"
)

// MockRefresher is a mock of the Refresher interface.
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RefreshGitHubStats(ctx context.Context, username string) (model.GitHubStats, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.GitHubStats), args.Error(1)
}
func (m *MockRefresher) RefreshUserProjects(ctx context.Context, username string) ([]model.Project, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]model.Project), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewSyncer_ParsesUsernames(t *testing.T) {
	t.Run("trims, skips blanks and de-duplicates", func(t *testing.T) {
		s, err := NewSyncer(new(MockRefresher), testLogger(), []string{" octocat ", "", "Octocat", "torvalds"}, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, []string{"octocat", "torvalds"}, s.usernames)
	})

	t.Run("rejects invalid usernames", func(t *testing.T) {
		_, err := NewSyncer(new(MockRefresher), testLogger(), []string{"octocat", "not/valid"}, time.Hour)
		var invalid *custom_errors.ErrInvalidUsername
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "not/valid", invalid.Username)
	})
}

func TestSyncer_RunSyncCycle(t *testing.T) {
	t.Run("refreshes every user", func(t *testing.T) {
		r := new(MockRefresher)
		for _, u := range []string{"octocat", "torvalds"} {
			r.On("RefreshGitHubStats", mock.Anything, u).Return(model.GitHubStats{}, nil).Once()
			r.On("RefreshUserProjects", mock.Anything, u).Return([]model.Project{{ID: "1"}}, nil).Once()
		}
		s, err := NewSyncer(r, testLogger(), []string{"octocat", "torvalds"}, time.Hour)
		require.NoError(t, err)

		s.RunSyncCycle(context.Background())

		r.AssertExpectations(t)
	})

	t.Run("a failed stats refresh still refreshes projects", func(t *testing.T) {
		r := new(MockRefresher)
		r.On("RefreshGitHubStats", mock.Anything, "ghost").Return(model.GitHubStats{}, errors.New("not found")).Once()
		r.On("RefreshUserProjects", mock.Anything, "ghost").Return([]model.Project(nil), errors.New("not found")).Once()
		s, err := NewSyncer(r, testLogger(), []string{"ghost"}, time.Hour)
		require.NoError(t, err)

		s.RunSyncCycle(context.Background())

		r.AssertExpectations(t)
	})

	t.Run("does nothing once the context is cancelled", func(t *testing.T) {
		r := new(MockRefresher)
		s, err := NewSyncer(r, testLogger(), []string{"octocat"}, time.Hour)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s.RunSyncCycle(ctx)

		r.AssertNotCalled(t, "RefreshGitHubStats", mock.Anything, mock.Anything)
	})
}

func TestSyncer_StartStopsOnCancel(t *testing.T) {
	r := new(MockRefresher)
	r.On("RefreshGitHubStats", mock.Anything, "octocat").Return(model.GitHubStats{}, nil)
	refreshed := make(chan struct{}, 1)
	r.On("RefreshUserProjects", mock.Anything, "octocat").Return([]model.Project{}, nil).Run(func(mock.Arguments) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})
	s, err := NewSyncer(r, testLogger(), []string{"octocat"}, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("initial sync cycle did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop after cancellation")
	}
}
