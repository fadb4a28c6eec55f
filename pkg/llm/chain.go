package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/router"
)

// Result is a structured answer and the provider that produced it.
type Result struct {
	Arguments json.RawMessage
	Provider  string
}

// ImageResult is a set of images and the provider that produced them.
type ImageResult struct {
	Images   []Image
	Provider string
}

// Chain tries providers in order. Only unavailability (5xx, transport
// failures, missing capability or key) moves on to the next provider;
// any other answer ends the chain.
type Chain struct {
	providers []Provider
}

// NewChain creates a chain over providers, primary first.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Structured runs req against the chain.
func (c *Chain) Structured(ctx context.Context, req StructuredRequest) (Result, error) {
	var lastErr error
	var lastName string
	for _, p := range c.providers {
		raw, err := p.Structured(ctx, req)
		if err == nil {
			if !json.Valid(raw) {
				return Result{}, apierr.Malformed(p.Name(), fmt.Errorf("tool arguments are not valid JSON"))
			}
			return Result{Arguments: raw, Provider: p.Name()}, nil
		}
		lastErr, lastName = err, p.Name()
		if !isRetryable(err) {
			break
		}
		slog.Warn("provider unavailable, trying next", "provider", p.Name(), "tool", req.Tool.Name, "error", err)
	}
	return Result{}, finalError(lastName, lastErr)
}

// Image runs req against the chain.
func (c *Chain) Image(ctx context.Context, req ImageRequest) (ImageResult, error) {
	var lastErr error
	var lastName string
	for _, p := range c.providers {
		images, err := p.Image(ctx, req)
		if err == nil {
			return ImageResult{Images: images, Provider: p.Name()}, nil
		}
		lastErr, lastName = err, p.Name()
		if !isRetryable(err) {
			break
		}
		slog.Warn("provider unavailable, trying next", "provider", p.Name(), "capability", "image", "error", err)
	}
	return ImageResult{}, finalError(lastName, lastErr)
}

func finalError(provider string, err error) error {
	if err == nil {
		return apierr.NotConfigured("AI provider")
	}
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return apierr.From(err)
	case errors.Is(err, ErrNotConfigured):
		e := apierr.NotConfigured("API key for " + provider)
		e.Err = err
		return e
	case errors.Is(err, ErrNoToolCall):
		return apierr.Malformed(provider, err)
	case errors.Is(err, ErrUnsupported):
		e := apierr.NotConfigured("a provider for this capability")
		e.Err = err
		return e
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.From(err)
	default:
		return apierr.Unavailable(provider, err)
	}
}

// Registry builds and caches provider chains per operation.
type Registry struct {
	ctx    context.Context
	router *router.Router

	mu     sync.Mutex
	chains map[string]*Chain
}

// NewRegistry creates a Registry resolving routes from cfg. ctx is used to
// construct SDK clients that need one.
func NewRegistry(ctx context.Context, cfg *config.Config) *Registry {
	return &Registry{
		ctx:    ctx,
		router: router.New(cfg),
		chains: make(map[string]*Chain),
	}
}

// Chain returns the provider chain for operation.
func (r *Registry) Chain(operation string) (*Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.chains[operation]; ok {
		return c, nil
	}
	routes, err := r.router.Resolve(operation)
	if err != nil {
		e := apierr.NotConfigured("AI provider")
		e.Err = err
		return nil, e
	}

	providers := make([]Provider, 0, len(routes))
	var names []string
	for _, route := range routes {
		p, err := New(r.ctx, route.Provider, route.Model)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		providers = append(providers, p)
		names = append(names, p.Name())
	}
	slog.Debug("resolved provider chain", "operation", operation, "providers", strings.Join(names, ","))

	c := NewChain(providers...)
	r.chains[operation] = c
	return c, nil
}

// Structured resolves the chain for operation and runs req.
func (r *Registry) Structured(ctx context.Context, operation string, req StructuredRequest) (Result, error) {
	c, err := r.Chain(operation)
	if err != nil {
		return Result{}, err
	}
	return c.Structured(ctx, req)
}

// Image resolves the chain for operation and runs req.
func (r *Registry) Image(ctx context.Context, operation string, req ImageRequest) (ImageResult, error) {
	c, err := r.Chain(operation)
	if err != nil {
		return ImageResult{}, err
	}
	return c.Image(ctx, req)
}
