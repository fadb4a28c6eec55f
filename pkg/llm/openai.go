package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/courseforge/courseforge/pkg/config"
)

// OpenAI talks to any OpenAI-compatible chat completions gateway.
type OpenAI struct {
	name       string
	model      string
	imageModel string
	configured bool
	client     openai.Client
}

// NewOpenAI creates an OpenAI-compatible provider. SDK retries are disabled;
// fallback between providers is the only retry mechanism.
func NewOpenAI(cfg config.ProviderConfig, model string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient(cfg.Timeout)),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}
	if model == "" {
		model = "google/gemini-2.5-flash"
	}
	return &OpenAI{
		name:       cfg.Name,
		model:      model,
		imageModel: cfg.ImageModel,
		configured: cfg.APIKey != "",
		client:     openai.NewClient(opts...),
	}
}

// Name returns the configured provider name.
func (p *OpenAI) Name() string { return p.name }

// Structured forces a single function call and returns its arguments.
func (p *OpenAI) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if !p.configured {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNotConfigured)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens: openai.Int(maxTokens(req.MaxTokens)),
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        req.Tool.Name,
				Description: openai.String(req.Tool.Description),
				Parameters:  openai.FunctionParameters(req.Tool.Parameters),
			}),
		},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("required"),
		},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNoToolCall)
	}
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name == req.Tool.Name && tc.Function.Arguments != "" {
			return json.RawMessage(tc.Function.Arguments), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", p.name, ErrNoToolCall)
}

// Image generates images through the Images API.
func (p *OpenAI) Image(ctx context.Context, req ImageRequest) ([]Image, error) {
	if !p.configured {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNotConfigured)
	}
	if p.imageModel == "" {
		return nil, fmt.Errorf("%s: no image model: %w", p.name, ErrUnsupported)
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(p.imageModel),
		N:      openai.Int(int64(count)),
	})
	if err != nil {
		return nil, p.wrapErr(err)
	}

	images := make([]Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		img := Image{URL: d.URL, B64: d.B64JSON}
		if img.B64 != "" {
			img.MimeType = "image/png"
		}
		if img.URL == "" && img.B64 == "" {
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNoToolCall)
	}
	return images, nil
}

func (p *OpenAI) wrapErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: p.name, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", p.name, err)
}
