package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/config"
	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

// GeminiClient talks to the Gemini generateContent REST endpoint. It can read
// pages directly through the url_context tool.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxContent int
	client     *http.Client
}

func NewGeminiClient(cfg config.GeminiConfig, maxContent int) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxContent: maxContent,
		client:     &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	URLContext *struct{} `json:"url_context,omitempty"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Capabilities() Capabilities {
	return Capabilities{URLSummarization: true}
}

func (g *GeminiClient) Summarize(ctx context.Context, url, content, category string) (string, error) {
	prompt := contentPrompt(url, truncateRunes(content, g.maxContent), category)
	return g.generate(ctx, prompt, nil)
}

func (g *GeminiClient) SummarizeFromURL(ctx context.Context, url, category string) (string, error) {
	return g.generate(ctx, urlPrompt(url, category), []geminiTool{{URLContext: &struct{}{}}})
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, tools []geminiTool) (string, error) {
	reqBody := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		Tools:             tools,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to read response: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &retry.StatusError{Op: "gemini", StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		return "", fmt.Errorf("gemini: failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if apiResp.Error != nil {
			msg = apiResp.Error.Status + " - " + apiResp.Error.Message
		}
		return "", &retry.StatusError{Op: "gemini", StatusCode: resp.StatusCode, Body: msg}
	}

	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
