package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

// maxBodyBytes bounds how much of a reader response is kept in memory.
const maxBodyBytes = 4 << 20

// ReaderResolver asks a hosted reader service (r.jina.ai style) to render the
// target page as markdown. The target URL is appended verbatim to the
// service's base URL.
type ReaderResolver struct {
	baseURL string
	client  *http.Client
}

func NewReaderResolver(baseURL string, timeout time.Duration) *ReaderResolver {
	return &ReaderResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeoutOrDefault(timeout)},
	}
}

func (r *ReaderResolver) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+url, nil)
	if err != nil {
		return "", fmt.Errorf("reader: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &retry.StatusError{Op: "reader", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reader: failed to read response: %w", err)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
