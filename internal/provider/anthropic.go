package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/nexus/internal/backoff"
)

// Anthropic implements Provider over Anthropic's Messages API.
type Anthropic struct {
	client  anthropic.Client
	model   string
	retries int
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string // default claude-sonnet-4-20250514
	MaxRetries int
}

// NewAnthropic builds an Anthropic-backed provider.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Anthropic{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		retries: cfg.MaxRetries,
	}, nil
}

// Name returns the provider name.
func (a *Anthropic) Name() string { return "anthropic" }

// DefaultModel returns the configured default model.
func (a *Anthropic) DefaultModel() string { return a.model }

// Complete issues one non-streaming completion, retrying any failed call
// with exponential backoff.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	text, err := backoff.Retry(ctx, backoff.DefaultPolicy(), a.retries, func(int) (string, error) {
		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}
		return extractAnthropicText(msg), nil
	})
	if err != nil {
		return "", fmt.Errorf("provider: anthropic completion failed after %d attempts: %w", a.retries, err)
	}
	return text, nil
}

func extractAnthropicText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
