// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-portfolio-stats/internal/api"
	"github-portfolio-stats/internal/cache"
	"github-portfolio-stats/internal/config"
	"github-portfolio-stats/internal/github"
	"github-portfolio-stats/internal/portfolio"
	"github-portfolio-stats/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "cache_backend", cfg.CacheBackend, "authenticated", cfg.GithubToken != "")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize the cache backend
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 5. Initialize application components
	var ghOpts []github.Option
	if cfg.GithubAPIURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GithubAPIURL))
	}
	ghClient, err := github.NewClient(cfg.GithubToken, cfg.HTTPTimeout, logger, ghOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	svc := portfolio.NewService(ghClient, cache.New(store, logger), logger, cfg.StatsTTL, cfg.ProjectsTTL)

	appSyncer, err := syncer.NewSyncer(svc, logger, cfg.WarmUsernames, cfg.SyncInterval)
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	// 6. Start the syncer and the HTTP server
	go appSyncer.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 7. Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured cache backend and returns a cleanup function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendFile:
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file cache", "dir", cfg.CacheDir)
		return store, func() {}, nil

	case config.CacheBackendPostgres:
		dbpool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Database connection established")

		if err := runMigrations(cfg.MigrationsDir, cfg.DBURL); err != nil {
			dbpool.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")
		return cache.NewPostgresStore(dbpool), dbpool.Close, nil

	default:
		logger.Info("Using in-memory cache")
		return cache.NewMemoryStore(), func() {}, nil
	}
}

func runMigrations(dir, dbURL string) error {
	m, err := migrate.New("file://"+dir, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
