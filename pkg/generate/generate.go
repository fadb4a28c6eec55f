// Package generate implements the course generation operations. Every
// operation follows the same flow: derive a cache key from a reduced view of
// the request, serve a live cache entry when there is one, otherwise ask the
// provider chain for a forced tool call, post-process the arguments and cache
// the shaped result. Side effects that must not be cached (stock-photo URLs)
// are applied after the cache on both paths.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/photos"
	"github.com/courseforge/courseforge/pkg/textclean"
)

// Prompt caps for script text, in runes. They are independent of the cache
// key sample length.
const (
	slideScriptLimit    = 4000
	exerciseScriptLimit = 3000
)

// errNoItems marks a tool call that decoded but carried nothing usable.
var errNoItems = errors.New("tool call returned no items")

// Backend runs structured and image calls for an operation. *llm.Registry
// implements it.
type Backend interface {
	Structured(ctx context.Context, operation string, req llm.StructuredRequest) (llm.Result, error)
	Image(ctx context.Context, operation string, req llm.ImageRequest) (llm.ImageResult, error)
}

// Service runs generation operations.
type Service struct {
	backend  Backend
	cache    *cache.Cache
	photos   photos.Searcher
	gen      config.GenerationConfig
	cacheCfg config.CacheConfig
	photoCfg config.PhotosConfig
}

// New creates a Service. c and ph may be nil; a nil cache always misses and
// a nil searcher leaves slides without photos.
func New(cfg *config.Config, backend Backend, c *cache.Cache, ph photos.Searcher) *Service {
	return &Service{
		backend:  backend,
		cache:    c,
		photos:   ph,
		gen:      cfg.Generation,
		cacheCfg: cfg.Cache,
		photoCfg: cfg.Photos,
	}
}

// Trace records how a request was served. Attach one with WithTrace to
// observe an operation from the outside.
type Trace struct {
	Operation string
	CacheKey  string
	CacheHit  bool
	Provider  string
}

type traceKey struct{}

// WithTrace returns a context that makes operations fill in t.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func traceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	if t == nil {
		return &Trace{}
	}
	return t
}

// job describes one cached generation.
type job[T any] struct {
	op string
	// params is the reduced request that forms the cache key.
	params any
	// request is the full request, hashed for diagnostics only.
	request any
	// generate produces a fresh result and names the provider.
	generate func(ctx context.Context) (*T, string, error)
	// ttl overrides the configured lifetime when it returns a positive value.
	ttl func(out *T) time.Duration
	// finish runs on every returned result, cached or fresh.
	finish func(ctx context.Context, out *T, cached bool)
}

func run[T any](ctx context.Context, s *Service, j job[T]) (*T, error) {
	key := cachekey.Key(j.op, j.params)
	tr := traceFrom(ctx)
	tr.Operation = j.op
	tr.CacheKey = key

	if raw, ok := s.cache.Get(ctx, key); ok {
		var out T
		err := json.Unmarshal(raw, &out)
		if err == nil {
			tr.CacheHit = true
			tr.Provider = "cache"
			j.finish(ctx, &out, true)
			return &out, nil
		}
		slog.Warn("cached response undecodable, regenerating", "operation", j.op, "key", key, "error", err)
	}

	out, provider, err := j.generate(ctx)
	if err != nil {
		return nil, err
	}
	tr.Provider = provider

	ttl := s.cacheCfg.TTL(j.op)
	if j.ttl != nil {
		if d := j.ttl(out); d > 0 && d < ttl {
			ttl = d
		}
	}
	s.cache.Set(ctx, key, j.op, cachekey.RequestHash(j.request), out, ttl)

	j.finish(ctx, out, false)
	return out, nil
}

// structured runs req for op and decodes the tool arguments into T.
func structured[T any](ctx context.Context, s *Service, op string, req llm.StructuredRequest) (*T, string, error) {
	res, err := s.backend.Structured(ctx, op, req)
	if err != nil {
		return nil, "", err
	}
	var out T
	if err := json.Unmarshal(res.Arguments, &out); err != nil {
		slog.Error("tool arguments do not match schema",
			"operation", op,
			"provider", res.Provider,
			"error", err,
			"payload", textclean.Truncate(string(res.Arguments), 2000),
		)
		return nil, "", apierr.Malformed(res.Provider, err)
	}
	return &out, res.Provider, nil
}

// checkItems rejects shaped output with no items. In demo mode the output
// must also reach the demo count. A rejected result is never cached.
func checkItems(provider string, got, want int, demo bool) error {
	if got == 0 {
		return apierr.Malformed(provider, errNoItems)
	}
	if demo && got < want {
		return apierr.Malformed(provider, fmt.Errorf("demo mode needs %d items, got %d", want, got))
	}
	return nil
}

// language returns "sv" or "en".
func (s *Service) language(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "" {
		l = strings.ToLower(s.gen.DefaultLanguage)
	}
	if strings.HasPrefix(l, "sv") {
		return "sv"
	}
	return "en"
}

// count resolves a requested item count: demo mode forces demo, a missing
// count uses def, and the result is clamped to [1, max].
func count(requested, def, max int, demo bool, demoCount int) int {
	if demo && demoCount > 0 {
		return textclean.Clamp(demoCount, 1, max)
	}
	if requested <= 0 {
		requested = def
	}
	return textclean.Clamp(requested, 1, max)
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierr.Invalid("%s is required", field)
	}
	return nil
}
