package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

// ReadabilityResolver downloads the page itself and extracts the main text
// locally, for deployments that cannot reach a hosted reader service.
type ReadabilityResolver struct {
	client *http.Client
}

func NewReadabilityResolver(timeout time.Duration) *ReadabilityResolver {
	return &ReadabilityResolver{
		client: &http.Client{Timeout: timeoutOrDefault(timeout)},
	}
}

func (r *ReadabilityResolver) Fetch(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("readability: invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("readability: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; rss-digest/1.0)")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("readability: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &retry.StatusError{Op: "readability", StatusCode: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: failed to parse article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", ErrEmptyContent
	}
	if article.Title != "" {
		text = "# " + strings.TrimSpace(article.Title) + "\n\n" + text
	}
	return text, nil
}
