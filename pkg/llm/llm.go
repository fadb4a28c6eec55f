// Package llm talks to upstream AI providers. Every generation is a single
// forced tool call whose arguments are returned as raw JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/courseforge/courseforge/pkg/config"
)

var (
	// ErrNoToolCall means the provider answered without the forced tool call.
	ErrNoToolCall = errors.New("response contained no tool call")
	// ErrUnsupported means the provider cannot serve the capability at all.
	ErrUnsupported = errors.New("capability not supported by provider")
	// ErrNotConfigured means the provider has no API key.
	ErrNotConfigured = errors.New("provider API key not configured")
)

// ToolSpec describes the single function a structured call must invoke.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// StructuredRequest is a prompt plus the tool whose arguments form the result.
type StructuredRequest struct {
	System    string
	User      string
	Tool      ToolSpec
	MaxTokens int64
}

// ImageRequest asks for generated images.
type ImageRequest struct {
	Prompt string
	Count  int
}

// Image is one generated image. Either URL or B64 is set.
type Image struct {
	URL      string
	B64      string
	MimeType string
}

// Provider is one configured upstream model.
type Provider interface {
	Name() string
	Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
	Image(ctx context.Context, req ImageRequest) ([]Image, error)
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Upstream exposes the status for error mapping.
func (e *StatusError) Upstream() (string, int, string) {
	return e.Provider, e.StatusCode, e.Message
}

// New builds a provider for cfg using model.
func New(ctx context.Context, cfg config.ProviderConfig, model string) (Provider, error) {
	if model == "" {
		model = cfg.Model
	}
	switch cfg.Type {
	case "", "openai":
		return NewOpenAI(cfg, model), nil
	case "anthropic":
		return NewAnthropic(cfg, model), nil
	case "gemini":
		return NewGemini(ctx, cfg, model)
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", cfg.Name, cfg.Type)
	}
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func maxTokens(n int64) int64 {
	if n <= 0 {
		return 4000
	}
	return n
}

// isRetryable returns true if the error warrants trying the next provider.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrNotConfigured) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	if errors.Is(err, ErrNoToolCall) {
		return false
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false
	}
	// transport failure
	return true
}
