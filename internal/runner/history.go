package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

// SyncHistory re-reads every archived digest in dir and syncs its entries.
// A file that cannot be read is logged and skipped.
func SyncHistory(ctx context.Context, dir string, loc *time.Location, syncer Syncer, logger *slog.Logger) (created, skipped int, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return 0, 0, fmt.Errorf("runner: failed to list archives: %w", err)
	}
	sort.Strings(files)
	logger.Info("found digest files", "count", len(files), "dir", dir)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return created, skipped, err
		}

		name := filepath.Base(path)
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read digest", "file", name, "error", err)
			continue
		}

		fileDate, ok := report.DateFromFileName(name, loc)
		if !ok {
			fileDate = time.Now().In(loc)
		}

		summaries := report.Parse(string(data), fileDate)
		logger.Info("parsed digest", "file", name, "articles", len(summaries))
		if len(summaries) == 0 {
			continue
		}

		c, s := syncer.Sync(ctx, summaries)
		created += c
		skipped += s
		logger.Info("synced digest", "file", name, "created", c, "skipped", s)
	}

	return created, skipped, nil
}
