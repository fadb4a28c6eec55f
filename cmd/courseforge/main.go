package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/cache/postgres"
	"github.com/courseforge/courseforge/pkg/cache/redis"
	"github.com/courseforge/courseforge/pkg/cache/sqlite"
	"github.com/courseforge/courseforge/pkg/config"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "courseforge",
		Short:         "Courseforge: AI course and slide generation backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to courseforge config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newCacheCmd(&configPath),
		newAuditCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when one is given and falls back to
// defaults otherwise. The logger is configured as a side effect.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else if err := config.LoadEnvFiles(".", cfg.EnvFiles...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

// setupLogging installs the default slog logger. Output goes to stderr so
// the MCP transport can own stdout.
func setupLogging(lc config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openCache builds the response cache for the configured backend. It
// returns nil when caching is disabled.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	var (
		store cache.Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "postgres":
		store, err = postgres.New(ctx, cfg.Cache.PostgresDSN)
	case "redis":
		store, err = redis.New(ctx, cfg.Cache.RedisURL)
	default:
		store, err = sqlite.New(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s cache: %w", cfg.Cache.Backend, err)
	}
	return cache.New(store), nil
}
