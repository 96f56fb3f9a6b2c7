package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/rss-digest/internal/config"
	"github.com/ryosukesatoh/rss-digest/internal/logging"
	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

const sampleSummary = "**核心观点**: 测试\n\n**关键要点**:\n- 一\n- 二\n- 三"

func geminiServer(t *testing.T, status int, body string, captured *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func newTestGemini(baseURL string, maxContent int) *GeminiClient {
	return NewGeminiClient(config.GeminiConfig{
		APIKey:  "gem-key",
		Model:   "gemini-test",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, maxContent)
}

func candidatesJSON(parts ...string) string {
	type part struct {
		Text string `json:"text"`
	}
	ps := make([]part, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, part{Text: p})
	}
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": ps}}},
	})
	return string(b)
}

func TestGeminiSummarizeFromURLUsesURLContextTool(t *testing.T) {
	var req geminiRequest
	ts := geminiServer(t, http.StatusOK, candidatesJSON("  **核心观点**: 测试", "\n\n**关键要点**:\n- 一\n- 二\n- 三\n"), &req)
	defer ts.Close()

	g := newTestGemini(ts.URL, 100)
	assert.True(t, g.Capabilities().URLSummarization)

	out, err := g.SummarizeFromURL(context.Background(), "https://example.com/a", "Tech")
	require.NoError(t, err)
	assert.Equal(t, sampleSummary, out)

	require.Len(t, req.Tools, 1)
	assert.NotNil(t, req.Tools[0].URLContext)
	assert.Contains(t, req.SystemInstruction.Parts[0].Text, "Simplified Chinese")
	require.Len(t, req.Contents, 1)
	assert.Contains(t, req.Contents[0].Parts[0].Text, "https://example.com/a")
	assert.Contains(t, req.Contents[0].Parts[0].Text, "Article Category: Tech")
}

func TestGeminiSummarizeTruncatesContent(t *testing.T) {
	var req geminiRequest
	ts := geminiServer(t, http.StatusOK, candidatesJSON(sampleSummary), &req)
	defer ts.Close()

	content := strings.Repeat("字", 50) + "TAIL"
	_, err := newTestGemini(ts.URL, 50).Summarize(context.Background(), "https://example.com/a", content, "Tech")
	require.NoError(t, err)

	prompt := req.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, strings.Repeat("字", 50))
	assert.NotContains(t, prompt, "TAIL")
	assert.Empty(t, req.Tools)
}

func TestGeminiErrors(t *testing.T) {
	t.Run("empty candidates", func(t *testing.T) {
		ts := geminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)
		defer ts.Close()
		_, err := newTestGemini(ts.URL, 10).Summarize(context.Background(), "u", "c", "x")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("whitespace only text", func(t *testing.T) {
		ts := geminiServer(t, http.StatusOK, candidatesJSON("  \n "), nil)
		defer ts.Close()
		_, err := newTestGemini(ts.URL, 10).SummarizeFromURL(context.Background(), "u", "x")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("api error", func(t *testing.T) {
		ts := geminiServer(t, http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, nil)
		defer ts.Close()
		_, err := newTestGemini(ts.URL, 10).Summarize(context.Background(), "u", "c", "x")
		var statusErr *retry.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
		assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	})
}

func newTestDeepSeek(baseURL string, maxContent int) *DeepSeekClient {
	return NewDeepSeekClient(config.DeepSeekConfig{
		APIKey:      "ds-key",
		Model:       "deepseek-chat",
		BaseURL:     baseURL,
		Temperature: 0.7,
		MaxTokens:   1000,
		Timeout:     5 * time.Second,
	}, maxContent)
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatCompletionJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "deepseek-chat",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestDeepSeekSummarize(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionJSON("\n"+sampleSummary+"\n"))
	}))
	defer ts.Close()

	d := newTestDeepSeek(ts.URL, 5)
	out, err := d.Summarize(context.Background(), "https://example.com/a", "abcdefghij", "AI")
	require.NoError(t, err)
	assert.Equal(t, sampleSummary, out)

	assert.Equal(t, "deepseek-chat", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	assert.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "abcde\n")
	assert.NotContains(t, got.Messages[1].Content, "abcdef")
}

func TestDeepSeekEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletionJSON("   "))
	}))
	defer ts.Close()

	_, err := newTestDeepSeek(ts.URL, 100).Summarize(context.Background(), "u", "c", "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestDeepSeekSummarizeFromURLMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	d := newTestDeepSeek(ts.URL, 100)
	assert.False(t, d.Capabilities().URLSummarization)

	_, err := d.SummarizeFromURL(context.Background(), "https://example.com/a", "AI")
	assert.ErrorIs(t, err, ErrURLUnsupported)
	assert.Zero(t, calls.Load())
}

func TestNew(t *testing.T) {
	logger := logging.Discard()

	tests := []struct {
		name     string
		llm      config.LLMConfig
		wantName string
		wantErr  string
	}{
		{
			name:     "gemini",
			llm:      config.LLMConfig{Provider: config.ProviderGemini, Gemini: config.GeminiConfig{APIKey: "k"}},
			wantName: "gemini",
		},
		{
			name:     "deepseek",
			llm:      config.LLMConfig{Provider: config.ProviderDeepSeek, DeepSeek: config.DeepSeekConfig{APIKey: "k"}},
			wantName: "deepseek",
		},
		{
			name:    "gemini without key",
			llm:     config.LLMConfig{Provider: config.ProviderGemini},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "deepseek without key",
			llm:     config.LLMConfig{Provider: config.ProviderDeepSeek},
			wantErr: "DEEPSEEK_API_KEY",
		},
		{
			name:    "unknown provider",
			llm:     config.LLMConfig{Provider: "other"},
			wantErr: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(&config.Config{LLM: tt.llm}, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "中文", truncateRunes("中文内容", 2))
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "same", truncateRunes("same", 4))
}
