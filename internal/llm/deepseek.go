package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ryosukesatoh/rss-digest/internal/config"
)

// DeepSeekClient uses DeepSeek's OpenAI-compatible chat completion API. It
// only summarises text supplied by the caller.
type DeepSeekClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxContent  int
}

func NewDeepSeekClient(cfg config.DeepSeekConfig, maxContent int) *DeepSeekClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &DeepSeekClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxContent:  maxContent,
	}
}

func (d *DeepSeekClient) Name() string { return "deepseek" }

func (d *DeepSeekClient) Capabilities() Capabilities {
	return Capabilities{}
}

func (d *DeepSeekClient) SummarizeFromURL(context.Context, string, string) (string, error) {
	return "", ErrURLUnsupported
}

func (d *DeepSeekClient) Summarize(ctx context.Context, url, content, category string) (string, error) {
	prompt := contentPrompt(url, truncateRunes(content, d.maxContent), category)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: d.temperature,
		MaxTokens:   d.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("deepseek: chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: no choices: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("deepseek: %w", ErrEmptyResponse)
	}
	return text, nil
}
