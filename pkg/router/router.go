package router

import (
	"fmt"

	"github.com/courseforge/courseforge/pkg/config"
)

// Route represents a resolved provider and model to try.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Router resolves generation operations to ordered provider+model chains.
type Router struct {
	cfg *config.Config
}

// New creates a Router from the given configuration.
func New(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

// Resolve returns an ordered list of routes for an operation.
// If the operation has a configured route, its targets are returned.
// Otherwise every provider is tried in declaration order with its own model.
func (r *Router) Resolve(operation string) ([]Route, error) {
	if len(r.cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	providerIndex := make(map[string]config.ProviderConfig, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		providerIndex[p.Name] = p
	}

	for _, route := range r.cfg.Router.Routes {
		if route.Operation != operation {
			continue
		}
		var routes []Route
		for _, target := range route.Targets {
			provider, ok := providerIndex[target.Provider]
			if !ok {
				continue // skip unknown providers
			}
			model := target.Model
			if model == "" {
				model = provider.Model
			}
			routes = append(routes, Route{Provider: provider, Model: model})
		}
		if len(routes) == 0 {
			return nil, fmt.Errorf("route %q: all providers unknown", operation)
		}
		return routes, nil
	}

	routes := make([]Route, 0, len(r.cfg.Providers))
	for _, p := range r.cfg.Providers {
		routes = append(routes, Route{Provider: p, Model: p.Model})
	}
	return routes, nil
}
