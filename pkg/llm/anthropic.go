package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/courseforge/courseforge/pkg/config"
)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	name       string
	model      string
	configured bool
	client     anthropic.Client
}

// NewAnthropic creates an Anthropic provider with SDK retries disabled.
func NewAnthropic(cfg config.ProviderConfig, model string) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient(cfg.Timeout)),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &Anthropic{
		name:       cfg.Name,
		model:      model,
		configured: cfg.APIKey != "",
		client:     anthropic.NewClient(opts...),
	}
}

// Name returns the configured provider name.
func (p *Anthropic) Name() string { return p.name }

// Structured forces the named tool and returns its input.
func (p *Anthropic) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if !p.configured {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNotConfigured)
	}

	schema := anthropic.ToolInputSchemaParam{
		Properties: req.Tool.Parameters["properties"],
	}
	if required, ok := req.Tool.Parameters["required"].([]string); ok {
		schema.Required = required
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        req.Tool.Name,
				Description: anthropic.String(req.Tool.Description),
				InputSchema: schema,
			},
		}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tool.Name},
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Provider: p.name, StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == req.Tool.Name && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", p.name, ErrNoToolCall)
}

// Image is not offered by the Messages API.
func (p *Anthropic) Image(context.Context, ImageRequest) ([]Image, error) {
	return nil, fmt.Errorf("%s: image generation: %w", p.name, ErrUnsupported)
}
