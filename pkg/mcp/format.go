package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/courseforge/courseforge/pkg/models"
)

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Cache Statistics\n"+
		"  Entries:    %d\n"+
		"  Live:       %d\n"+
		"  Expired:    %d\n"+
		"  Total hits: %d\n"+
		"  Hits:       %d\n"+
		"  Misses:     %d\n"+
		"  Hit Rate:   %.1f%%\n",
		stats.Entries, stats.Live, stats.Expired, stats.TotalHits, stats.Hits, stats.Misses, hitRate)

	if len(stats.ByFunction) > 0 {
		ops := make([]string, 0, len(stats.ByFunction))
		for op := range stats.ByFunction {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		b.WriteString("  By operation:\n")
		for _, op := range ops {
			fmt.Fprintf(&b, "    %-20s %d\n", op, stats.ByFunction[op])
		}
	}
	return b.String()
}

// formatAuditEvents formats generation events as a text table.
func formatAuditEvents(events []models.GenerationEvent) string {
	if len(events) == 0 {
		return "No audit events found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-20s %-5s %-12s %-7s %-20s %8s  %s\n",
		"Request ID", "Operation", "Cache", "Provider", "Status", "Code", "Latency", "Time")
	b.WriteString(strings.Repeat("-", 136) + "\n")
	for _, e := range events {
		cache := "miss"
		if e.CacheHit {
			cache = "hit"
		}
		fmt.Fprintf(&b, "%-36s %-20s %-5s %-12s %-7s %-20s %6dms  %s\n",
			e.RequestID, e.Operation, cache, e.Provider, e.Status, e.ErrorCode, e.LatencyMs,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
