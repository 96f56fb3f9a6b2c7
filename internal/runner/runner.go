package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/rss-digest/internal/fetcher"
	"github.com/ryosukesatoh/rss-digest/internal/opml"
	"github.com/ryosukesatoh/rss-digest/internal/publisher"
	"github.com/ryosukesatoh/rss-digest/internal/report"
	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

// Summarizer turns articles into summaries in input order.
type Summarizer interface {
	SummarizeAll(ctx context.Context, articles []fetcher.Article) []summarizer.ArticleSummary
}

// Syncer uploads summaries to an external table.
type Syncer interface {
	Sync(ctx context.Context, summaries []summarizer.ArticleSummary) (created, skipped int)
}

// Options configure a pipeline run.
type Options struct {
	OPMLPath string
	Window   time.Duration
	Location *time.Location
	// Timeout bounds fetching and summarizing. Zero means no limit.
	Timeout time.Duration
}

// Runner orchestrates the OPML -> fetch -> summarize -> publish pipeline.
type Runner struct {
	opts       Options
	fetcher    fetcher.Fetcher
	summarizer Summarizer
	publishers []publisher.Publisher
	syncer     Syncer
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a runner. syncer may be nil when sync is not configured.
func New(opts Options, f fetcher.Fetcher, s Summarizer, pubs []publisher.Publisher, syncer Syncer, logger *slog.Logger) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Runner{
		opts:       opts,
		fetcher:    f,
		summarizer: s,
		publishers: pubs,
		syncer:     syncer,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the full pipeline once. When the run is cut short by ctx or
// the run timeout, the summaries completed so far are still published and
// the interruption is returned as an error.
func (r *Runner) Run(ctx context.Context) error {
	log := r.logger.With("run_id", uuid.NewString())
	started := r.now()
	log.Info("starting pipeline", "opml", r.opts.OPMLPath, "window", r.opts.Window, "timezone", r.opts.Location.String())

	feeds, err := opml.ParseFile(r.opts.OPMLPath)
	if err != nil {
		return fmt.Errorf("runner: failed to parse OPML: %w", err)
	}
	log.Info("parsed subscriptions", "feeds", len(feeds), "categories", len(opml.Categories(feeds)))

	runCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	now := r.now().In(r.opts.Location)
	articles := fetcher.FetchRecent(runCtx, r.fetcher, feeds, r.opts.Window, now, log)
	log.Info("fetched recent articles", "count", len(articles))

	var summaries []summarizer.ArticleSummary
	if len(articles) == 0 {
		log.Info("no recent articles, generating empty report")
	} else {
		summaries = r.summarizer.SummarizeAll(runCtx, articles)
		stats := summarizer.CountTiers(summaries)
		log.Info("summary statistics",
			"llm_direct", stats[summarizer.TierDirect],
			"extracted", stats[summarizer.TierExtracted],
			"native_fallback", stats[summarizer.TierNativeFallback],
		)
	}
	interrupted := runCtx.Err()

	// An interrupted run with nothing to show must not overwrite the day's
	// digest with the empty-day document.
	if interrupted != nil && len(summaries) == 0 {
		log.Warn("pipeline interrupted before any summary, nothing published", "articles", len(articles), "error", interrupted)
		return fmt.Errorf("runner: run interrupted before any article was summarized: %w", interrupted)
	}

	digest := report.RenderDigest(summaries, now, r.now().In(r.opts.Location))

	// Publishing must not be cut short by the cancellation that stopped
	// summarizing.
	pubCtx := context.WithoutCancel(ctx)
	if err := r.publish(pubCtx, log, digest); err != nil {
		return err
	}

	if r.syncer != nil && len(summaries) > 0 {
		if ctx.Err() != nil {
			log.Warn("skipping sync, run cancelled")
		} else {
			created, skipped := r.syncer.Sync(pubCtx, summaries)
			log.Info("sync finished", "created", created, "skipped", skipped)
		}
	}

	if interrupted != nil {
		log.Warn("pipeline interrupted", "completed", len(summaries), "articles", len(articles), "error", interrupted)
		return fmt.Errorf("runner: run interrupted after %d of %d articles: %w", len(summaries), len(articles), interrupted)
	}

	log.Info("pipeline completed", "articles", len(summaries), "elapsed", r.now().Sub(started).Round(time.Millisecond))
	return nil
}

// publish tries every publisher. It fails only if all of them fail.
func (r *Runner) publish(ctx context.Context, log *slog.Logger, digest *report.Digest) error {
	var publishErrors []error
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, digest); err != nil {
			publishErrors = append(publishErrors, fmt.Errorf("publish via %T failed: %w", pub, err))
			log.Warn("publisher failed", "publisher", fmt.Sprintf("%T", pub), "error", err)
		} else {
			log.Debug("published", "publisher", fmt.Sprintf("%T", pub))
		}
	}

	if len(publishErrors) == len(r.publishers) && len(r.publishers) > 0 {
		return fmt.Errorf("runner: all publishers failed: %w", errors.Join(publishErrors...))
	}
	if len(publishErrors) > 0 {
		log.Warn("pipeline completed with publisher failures", "failed", len(publishErrors), "publishers", len(r.publishers))
	}
	return nil
}
