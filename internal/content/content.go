// Package content retrieves the readable text of an article page. Resolvers
// make exactly one attempt per call; retrying is the caller's decision.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/config"
)

// ErrEmptyContent is returned when the page was fetched but yielded no text.
var ErrEmptyContent = errors.New("content: extracted content is empty")

// Resolver fetches the full text of the page at url.
type Resolver interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// New builds the resolver selected by cfg.Content.Extractor.
func New(cfg *config.Config) (Resolver, error) {
	switch cfg.Content.Extractor {
	case config.ExtractorReader:
		return NewReaderResolver(cfg.Content.ReaderBaseURL, cfg.Content.Timeout), nil
	case config.ExtractorReadability:
		return NewReadabilityResolver(cfg.Content.Timeout), nil
	default:
		return nil, fmt.Errorf("content: unsupported extractor %q", cfg.Content.Extractor)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
