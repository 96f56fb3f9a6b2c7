package lark

import (
	"context"
	"log/slog"

	"github.com/ryosukesatoh/rss-digest/internal/config"
	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

// Syncer pushes summaries into one table, skipping URLs already present.
type Syncer struct {
	client    *Client
	appToken  string
	tableID   string
	batchSize int
	logger    *slog.Logger
}

func NewSyncer(cfg config.LarkConfig, logger *slog.Logger) *Syncer {
	logger = logger.With("component", "lark")
	return &Syncer{
		client:    NewClient(cfg.Host, cfg.AppID, cfg.AppSecret, logger),
		appToken:  cfg.AppToken,
		tableID:   cfg.TableID,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Sync creates a record for every summary whose URL is not in the table yet.
// When the existing rows cannot be listed, everything is uploaded. Repeated
// URLs within summaries are uploaded once.
func (s *Syncer) Sync(ctx context.Context, summaries []summarizer.ArticleSummary) (created, skipped int) {
	existing, err := s.client.ExistingURLs(ctx, s.appToken, s.tableID)
	if err != nil {
		s.logger.Warn("failed to fetch existing URLs, proceeding without dedup", "error", err)
		existing = make(map[string]struct{})
	}

	records := make([]Fields, 0, len(summaries))
	for _, sum := range summaries {
		if _, ok := existing[sum.Article.URL]; ok {
			skipped++
			continue
		}
		existing[sum.Article.URL] = struct{}{}
		records = append(records, ToFields(sum))
	}

	if skipped > 0 {
		s.logger.Info("skipping existing articles", "count", skipped)
	}
	if len(records) == 0 {
		s.logger.Info("no new articles to sync")
		return 0, skipped
	}

	created, err = s.client.CreateRecords(ctx, s.appToken, s.tableID, records, s.batchSize)
	if err != nil {
		s.logger.Error("lark sync incomplete", "created", created, "attempted", len(records), "error", err)
	}
	return created, skipped
}
