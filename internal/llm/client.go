// Package llm wraps the chat-completion backends used to summarise articles.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ryosukesatoh/rss-digest/internal/config"
)

var (
	// ErrURLUnsupported is returned by SummarizeFromURL on backends that
	// cannot read a page by URL. No request is made in that case.
	ErrURLUnsupported = errors.New("llm: URL summarization not supported")

	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Capabilities describes optional features of a backend.
type Capabilities struct {
	URLSummarization bool
}

// Client produces a formatted Chinese summary for an article.
type Client interface {
	// Summarize summarises content that was obtained by the caller.
	Summarize(ctx context.Context, url, content, category string) (string, error)
	// SummarizeFromURL lets the model read the page itself.
	SummarizeFromURL(ctx context.Context, url, category string) (string, error)
	Capabilities() Capabilities
	Name() string
}

// New builds the client for cfg.LLM.Provider. A missing API key is an error
// so that misconfiguration surfaces before any feed is fetched.
func New(cfg *config.Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	maxLen := cfg.LLM.MaxContentLength

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		if cfg.LLM.Gemini.APIKey == "" {
			return nil, errors.New("llm: GEMINI_API_KEY is required for the gemini provider")
		}
		c := NewGeminiClient(cfg.LLM.Gemini, maxLen)
		logger.Info("initialized LLM client", "provider", c.Name(), "model", cfg.LLM.Gemini.Model)
		return c, nil
	case config.ProviderDeepSeek:
		if cfg.LLM.DeepSeek.APIKey == "" {
			return nil, errors.New("llm: DEEPSEEK_API_KEY is required for the deepseek provider")
		}
		c := NewDeepSeekClient(cfg.LLM.DeepSeek, maxLen)
		logger.Info("initialized LLM client", "provider", c.Name(), "model", cfg.LLM.DeepSeek.Model)
		return c, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}

// truncateRunes cuts s to at most n code points.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
