// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	GithubToken   string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL  string        `mapstructure:"GITHUB_API_URL"`
	HTTPTimeout   time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CacheBackend  string        `mapstructure:"CACHE_BACKEND"`
	CacheDir      string        `mapstructure:"CACHE_DIR"`
	DBURL         string        `mapstructure:"DB_URL"`
	MigrationsDir string        `mapstructure:"MIGRATIONS_DIR"`
	StatsTTL      time.Duration `mapstructure:"STATS_TTL"`
	ProjectsTTL   time.Duration `mapstructure:"PROJECTS_TTL"`
	WarmUsernames []string      `mapstructure:"WARM_USERNAMES"`
	SyncInterval  time.Duration `mapstructure:"SYNC_INTERVAL"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Every key needs a default so AutomaticEnv values reach Unmarshal.
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("CACHE_DIR", ".cache/github")
	v.SetDefault("DB_URL", "")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("STATS_TTL", "1h")
	v.SetDefault("PROJECTS_TTL", "1h")
	v.SetDefault("WARM_USERNAMES", "")
	v.SetDefault("SYNC_INTERVAL", "50m")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendFile:
		if c.CacheDir == "" {
			return errors.New("CACHE_DIR is required when CACHE_BACKEND=file")
		}
	case CacheBackendPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is required when CACHE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of memory, file, postgres; got %q", c.CacheBackend)
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.StatsTTL <= 0 || c.ProjectsTTL <= 0 {
		return errors.New("STATS_TTL and PROJECTS_TTL must be positive")
	}
	if len(c.WarmUsernames) > 0 && c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive when WARM_USERNAMES is set")
	}
	return nil
}
