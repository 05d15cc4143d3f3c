package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pratik-mahalle/cloudops/internal/config"
)

// ErrEmptyCompletion is returned when the model sends back no choices
var ErrEmptyCompletion = errors.New("openai returned no choices")

// OpenAICompleter sends prompts to the OpenAI chat completions API
type OpenAICompleter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAICompleter returns nil when no API key is configured
func NewOpenAICompleter(cfg config.InsightsConfig) *OpenAICompleter {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICompleter{
		client:  openai.NewClient(cfg.OpenAIAPIKey),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Model returns the configured chat model
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete returns the content of the first choice
func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
