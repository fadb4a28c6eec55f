package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/courseforge/courseforge/pkg/config"
)

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	name   string
	model  string
	client *genai.Client
}

// NewGemini creates a Gemini provider. A provider without an API key is
// returned unconfigured rather than failing startup.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, model string) (*Gemini, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	g := &Gemini{name: cfg.Name, model: model}
	if cfg.APIKey == "" {
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient(cfg.Timeout),
	}
	if cfg.URL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.URL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Name returns the configured provider name.
func (p *Gemini) Name() string { return p.name }

// Structured calls GenerateContent with function calling forced to ANY.
func (p *Gemini) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if p.client == nil {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNotConfigured)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		MaxOutputTokens:   int32(maxTokens(req.MaxTokens)),
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:                 req.Tool.Name,
				Description:          req.Tool.Description,
				ParametersJsonSchema: req.Tool.Parameters,
			}},
		}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{req.Tool.Name},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.User), cfg)
	if err != nil {
		return nil, p.wrapErr(err)
	}
	for _, call := range resp.FunctionCalls() {
		if call.Name != req.Tool.Name {
			continue
		}
		data, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: encode function args: %w", p.name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", p.name, ErrNoToolCall)
}

// Image is not wired for Gemini; image routes should target an
// OpenAI-compatible gateway with an image model.
func (p *Gemini) Image(context.Context, ImageRequest) ([]Image, error) {
	return nil, fmt.Errorf("%s: image generation: %w", p.name, ErrUnsupported)
}

func (p *Gemini) wrapErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: p.name, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", p.name, err)
}
