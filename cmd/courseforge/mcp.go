package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/courseforge/courseforge/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the generation operations as an MCP server over stdio",
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

			var (
				cs mcp.CacheStatter
				aq mcp.AuditQuerier
			)
			if a.cache != nil {
				cs = a.cache
			}
			if a.auditor != nil {
				aq = a.auditor
			}

			srv := mcp.New(a.svc, cs, aq, version)
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
