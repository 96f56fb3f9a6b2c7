package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

// ReadmePublisher rewrites the repository README so that it shows the latest
// digest and links to its archived copy.
type ReadmePublisher struct {
	path        string
	archivesDir string
	opts        report.ReadmeOptions
	logger      *slog.Logger
}

// NewReadmePublisher creates a README publisher. ReportLink and ArchivesDir in
// opts are filled in per digest.
func NewReadmePublisher(path, archivesDir string, opts report.ReadmeOptions, logger *slog.Logger) *ReadmePublisher {
	return &ReadmePublisher{path: path, archivesDir: archivesDir, opts: opts, logger: logger}
}

func (p *ReadmePublisher) Publish(_ context.Context, digest *report.Digest) error {
	readmeDir := filepath.Dir(p.path)
	archived := filepath.Join(p.archivesDir, digest.FileName())

	link, err := filepath.Rel(readmeDir, archived)
	if err != nil {
		link = archived
	}
	archives, err := filepath.Rel(readmeDir, p.archivesDir)
	if err != nil {
		archives = p.archivesDir
	}

	opts := p.opts
	opts.ReportLink = filepath.ToSlash(link)
	opts.ArchivesDir = filepath.ToSlash(archives)

	content := report.RenderReadme(digest.Markdown, opts)
	if err := os.WriteFile(p.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("readme: failed to write %s: %w", p.path, err)
	}

	p.logger.Info("README updated", "path", p.path)
	return nil
}
