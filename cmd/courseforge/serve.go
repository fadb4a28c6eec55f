package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/courseforge/courseforge/pkg/audit"
	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/generate"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/photos"
	"github.com/courseforge/courseforge/pkg/server"
)

// app holds the long-lived components shared by serve and mcp.
type app struct {
	cfg     *config.Config
	cache   *cache.Cache
	auditor *audit.Logger
	svc     *generate.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	c, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var a *audit.Logger
	if cfg.Audit.Enabled {
		a, err = audit.New(cfg.Audit)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("init audit log: %w", err)
		}
	}

	svc := generate.New(cfg, llm.NewRegistry(ctx, cfg), c, photoSearcher(cfg.Photos))
	return &app{cfg: cfg, cache: c, auditor: a, svc: svc}, nil
}

// photoSearcher returns nil when no stock-photo provider has a key.
func photoSearcher(pc config.PhotosConfig) photos.Searcher {
	var searchers []photos.Searcher
	if pc.UnsplashKey != "" {
		searchers = append(searchers, photos.NewUnsplash(pc.UnsplashKey, pc.UnsplashURL, pc.Timeout))
	}
	if pc.PexelsKey != "" {
		searchers = append(searchers, photos.NewPexels(pc.PexelsKey, pc.PexelsURL, pc.Timeout))
	}
	m := photos.NewMulti(searchers...)
	if m.Empty() {
		slog.Info("no stock photo provider configured, slides will not carry photos")
		return nil
	}
	return m
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		slog.Warn("close cache", "error", err)
	}
	if err := a.auditor.Close(); err != nil {
		slog.Warn("close audit log", "error", err)
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the generation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			slog.Info("starting courseforge",
				"config", *configPath,
				"cache", cfg.Cache.Enabled,
				"cache_backend", cfg.Cache.Backend,
				"audit", cfg.Audit.Enabled,
				"providers", len(cfg.Providers))
			return server.New(cfg, a.svc, a.cache, a.auditor).ListenAndServe(ctx)
		},
	}
}
