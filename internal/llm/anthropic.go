package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

const (
	defaultAnthropicModel     = "claude-3-5-sonnet-20241022"
	defaultAnthropicMaxTokens = 5000
	anthropicTimeout          = 120 * time.Second
)

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

type anthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// NewAnthropic builds the Claude backend. Extra request options are applied
// after the defaults, which lets tests point the client at a local server.
func NewAnthropic(cfg AnthropicConfig, logger zerolog.Logger, opts ...option.RequestOption) (Backend, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic: missing api key")
	}
	model := strings.Trim(strings.TrimSpace(cfg.Model), "\"'")
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	all := append([]option.RequestOption{
		option.WithAPIKey(key),
		option.WithRequestTimeout(anthropicTimeout),
	}, opts...)

	return &anthropicBackend{
		client:    anthropic.NewClient(all...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

func (c *anthropicBackend) Name() string { return c.model }

func (c *anthropicBackend) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("prompt_size", len(req.Prompt)).
		Int("max_tokens", maxTokens).
		Msg("Anthropic API request")

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	c.logger.Debug().
		Str("stop_reason", string(resp.StopReason)).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Int("response_length", len(text)).
		Msg("Anthropic API success")

	return text, nil
}
