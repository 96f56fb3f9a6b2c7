package publisher

import (
	"context"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

// Publisher publishes a digest to some output destination.
type Publisher interface {
	Publish(ctx context.Context, digest *report.Digest) error
}
