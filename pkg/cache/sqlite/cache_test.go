package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/cache/cachetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	cachetest.Run(t, func(t *testing.T) cache.Store { return newTestStore(t) })
}

func TestReopenKeepsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	ctx := context.Background()
	now := time.Now().UTC()

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, cachetest.Entry("k1", "generate-slides", "deck", now.Add(time.Hour), now)); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("expected entry after reopen: %v", err)
	}
	if string(got.Response) != `"deck"` {
		t.Errorf("unexpected response: %s", got.Response)
	}
}

func TestCacheOverSQLite(t *testing.T) {
	c := cache.New(newTestStore(t))
	ctx := context.Background()

	c.Set(ctx, "k", "generate-exercises", "rh", map[string]int{"n": 1}, time.Hour)
	data, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `{"n":1}` {
		t.Errorf("unexpected payload: %s", data)
	}
	c.Wait()

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalHits != 1 {
		t.Errorf("expected stored hit count 1, got %d", stats.TotalHits)
	}
}
