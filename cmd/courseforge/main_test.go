package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courseforge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenCacheSQLite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "db_path: "+filepath.Join(dir, "cache.db")+"\n")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	c, err := openCache(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("expected cache")
	}
	defer c.Close()

	c.Set(ctx, "k1", models.OpTitles, "h", map[string]string{"a": "b"}, time.Hour)
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
}

func TestOpenCacheDisabled(t *testing.T) {
	path := writeConfig(t, "cache:\n  enabled: false\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	c, err := openCache(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Error("expected nil cache when disabled")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: memcached\n")
	if _, err := loadConfig(path); err == nil {
		t.Error("expected error for unknown cache backend")
	}
}

func TestPhotoSearcherWithoutKeys(t *testing.T) {
	if s := photoSearcher(config.PhotosConfig{}); s != nil {
		t.Error("expected nil searcher")
	}
}

func TestFormatCacheEntries(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	out := formatCacheEntries([]models.CacheEntry{
		{CacheKey: "0123456789abcdef0123", FunctionName: models.OpSlides, HitCount: 3, ExpiresAt: now.Add(time.Hour), CreatedAt: now},
		{CacheKey: "short", FunctionName: models.OpQuiz, ExpiresAt: now.Add(-time.Hour), CreatedAt: now},
	}, now)

	for _, want := range []string{"0123456789abcdef", models.OpSlides, "live", "expired", "short"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef0123") {
		t.Error("expected key to be truncated")
	}
}

func TestFormatAuditEventsEmpty(t *testing.T) {
	if got := formatAuditEvents(nil); got != "No audit events found.\n" {
		t.Errorf("unexpected output %q", got)
	}
}
