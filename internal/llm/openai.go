package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const openAITimeout = 120 * time.Second

// AzureConfig locates a GPT-4o deployment on Azure OpenAI.
type AzureConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Deployment string
}

type openAIBackend struct {
	client     *openai.Client
	deployment string
	logger     zerolog.Logger
}

// NewAzureOpenAI builds the GPT-4o backend. httpClient may be nil.
func NewAzureOpenAI(cfg AzureConfig, logger zerolog.Logger, httpClient *http.Client) (Backend, error) {
	var missing []string
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, "base url")
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		missing = append(missing, "deployment")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("azure openai: missing %s", strings.Join(missing, ", "))
	}

	deployment := strings.TrimSpace(cfg.Deployment)
	clientCfg := openai.DefaultAzureConfig(strings.TrimSpace(cfg.APIKey), strings.TrimRight(cfg.BaseURL, "/"))
	if v := strings.TrimSpace(cfg.APIVersion); v != "" {
		clientCfg.APIVersion = v
	}
	clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAITimeout}
	}
	clientCfg.HTTPClient = httpClient

	return &openAIBackend{
		client:     openai.NewClientWithConfig(clientCfg),
		deployment: deployment,
		logger:     logger,
	}, nil
}

func (c *openAIBackend) Name() string { return c.deployment }

func (c *openAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	c.logger.Debug().
		Str("deployment", c.deployment).
		Int("messages", len(messages)).
		Int("prompt_size", len(req.Prompt)).
		Msg("Azure OpenAI request")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.deployment,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("azure openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("azure openai: no choices: %w", ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("azure openai: %w", ErrEmptyResponse)
	}

	c.logger.Debug().
		Str("finish_reason", string(choice.FinishReason)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("response_preview", truncateString(text, 200)).
		Msg("Azure OpenAI success")

	return text, nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
