package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/models"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(*configPath, func(ctx context.Context, c *cache.Cache) error {
				stats, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Print(formatCacheStats(stats))
				return nil
			})
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached responses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(*configPath, func(ctx context.Context, c *cache.Cache) error {
				entries, err := c.List(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Print(formatCacheEntries(entries, time.Now()))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "max entries to list")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(*configPath, func(ctx context.Context, c *cache.Cache) error {
				n, err := c.Prune(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d expired cache entries.\n", n)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(*configPath, func(ctx context.Context, c *cache.Cache) error {
				if err := c.Clear(ctx); err != nil {
					return err
				}
				fmt.Println("All cache entries cleared.")
				return nil
			})
		},
	}

	cmd.AddCommand(statsCmd, listCmd, pruneCmd, clearCmd)
	return cmd
}

func withCache(configPath string, fn func(context.Context, *cache.Cache) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	c, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("cache is disabled in config")
	}
	defer func() { _ = c.Close() }()
	return fn(ctx, c)
}

func formatCacheStats(s models.CacheStats) string {
	rows := [][]string{
		{"Entries", strconv.FormatInt(s.Entries, 10)},
		{"Live", strconv.FormatInt(s.Live, 10)},
		{"Expired", strconv.FormatInt(s.Expired, 10)},
		{"Stored hits", strconv.FormatInt(s.TotalHits, 10)},
	}
	ops := make([]string, 0, len(s.ByFunction))
	for op := range s.ByFunction {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		rows = append(rows, []string{"  " + op, strconv.FormatInt(s.ByFunction[op], 10)})
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func formatCacheEntries(entries []models.CacheEntry, now time.Time) string {
	if len(entries) == 0 {
		return "No cache entries found.\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		state := "live"
		if !e.Live(now) {
			state = "expired"
		}
		rows = append(rows, []string{
			e.CacheKey[:min(16, len(e.CacheKey))],
			e.FunctionName,
			strconv.FormatInt(e.HitCount, 10),
			state,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.ExpiresAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"Key", "Operation", "Hits", "State", "Created", "Expires"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}
