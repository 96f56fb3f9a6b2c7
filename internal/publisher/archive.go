package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

// ArchivePublisher writes each digest to {dir}/YYYY-MM-DD.md, replacing any
// earlier digest for the same day.
type ArchivePublisher struct {
	dir    string
	logger *slog.Logger
}

func NewArchivePublisher(dir string, logger *slog.Logger) *ArchivePublisher {
	return &ArchivePublisher{dir: dir, logger: logger}
}

// PathFor returns where the digest is (or will be) archived.
func (p *ArchivePublisher) PathFor(digest *report.Digest) string {
	return filepath.Join(p.dir, digest.FileName())
}

func (p *ArchivePublisher) Publish(_ context.Context, digest *report.Digest) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("archive: failed to create %s: %w", p.dir, err)
	}

	path := p.PathFor(digest)
	if err := os.WriteFile(path, []byte(digest.Markdown), 0o644); err != nil {
		return fmt.Errorf("archive: failed to write %s: %w", path, err)
	}

	p.logger.Info("report saved", "path", path)
	return nil
}
