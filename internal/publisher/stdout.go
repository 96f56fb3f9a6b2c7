package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

// StdoutPublisher prints the digest to stdout.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{w: os.Stdout}
}

func (p *StdoutPublisher) Publish(_ context.Context, digest *report.Digest) error {
	sep := strings.Repeat("=", 72)
	if _, err := fmt.Fprintf(p.w, "%s\n%s\n%s\n", sep, strings.TrimRight(digest.Markdown, "\n"), sep); err != nil {
		return fmt.Errorf("stdout: %w", err)
	}
	return nil
}
