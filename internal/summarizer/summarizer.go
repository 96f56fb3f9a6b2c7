// Package summarizer turns fetched articles into LLM summaries, falling back
// from direct URL reading to extracted page text to the feed's own summary.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ryosukesatoh/rss-digest/internal/content"
	"github.com/ryosukesatoh/rss-digest/internal/fetcher"
	"github.com/ryosukesatoh/rss-digest/internal/llm"
)

const (
	fallbackExcerptRunes = 200
	noSummaryText        = "无法获取摘要"
)

// Options tune pacing and parallelism.
type Options struct {
	// Delay is waited after every successful LLM call.
	Delay time.Duration
	// Workers bounds how many articles are summarised at once. Values
	// below 2, or any value without a Delay, mean strictly sequential
	// processing.
	Workers int
}

// Orchestrator runs the tiered fallback for each article.
type Orchestrator struct {
	llm      llm.Client
	resolver content.Resolver
	delay    time.Duration
	workers  int
	// limiter spaces LLM calls across workers so that parallel runs never
	// exceed the sequential request rate. Nil when sequential.
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(client llm.Client, resolver content.Resolver, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > 1 && opts.Delay <= 0 {
		// Parallel calls are paced by the shared limiter, which needs a delay.
		logger.Warn("parallel summarizing requires a delay, running sequentially", "workers", workers)
		workers = 1
	}

	o := &Orchestrator{
		llm:      client,
		resolver: resolver,
		delay:    opts.Delay,
		workers:  workers,
		logger:   logger.With("component", "summarizer", "llm", client.Name()),
	}
	if workers > 1 {
		o.limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	return o
}

// SummarizeArticle always yields a summary unless ctx is cancelled, in which
// case the context's error is returned.
func (o *Orchestrator) SummarizeArticle(ctx context.Context, a fetcher.Article) (ArticleSummary, error) {
	log := o.logger.With("url", a.URL)

	if o.llm.Capabilities().URLSummarization {
		text, err := o.call(ctx, func() (string, error) {
			return o.llm.SummarizeFromURL(ctx, a.URL, a.Category)
		})
		if err == nil {
			return o.succeed(ctx, log, a, text, TierDirect), nil
		}
		log.Warn("tier failed", "tier", TierDirect, "error", err)
	}
	if err := ctx.Err(); err != nil {
		return ArticleSummary{}, err
	}

	page, err := o.resolver.Fetch(ctx, a.URL)
	if err == nil {
		var text string
		text, err = o.call(ctx, func() (string, error) {
			return o.llm.Summarize(ctx, a.URL, page, a.Category)
		})
		if err == nil {
			return o.succeed(ctx, log, a, text, TierExtracted), nil
		}
	}
	log.Warn("tier failed", "tier", TierExtracted, "error", err)
	if err := ctx.Err(); err != nil {
		return ArticleSummary{}, err
	}

	if a.Summary != "" {
		text, err := o.call(ctx, func() (string, error) {
			return o.llm.Summarize(ctx, a.URL, a.Summary, a.Category)
		})
		if err == nil {
			return o.succeed(ctx, log, a, text, TierNativeFallback), nil
		}
		log.Error("tier failed", "tier", TierNativeFallback, "error", err)
		if err := ctx.Err(); err != nil {
			return ArticleSummary{}, err
		}
	}

	log.Warn("all tiers failed, using raw feed summary")
	return ArticleSummary{
		Article: a,
		Summary: fallbackSummary(a.Summary),
		Tier:    TierNativeFallback,
	}, nil
}

// SummarizeAll returns one summary per article in input order. When ctx is
// cancelled, articles not yet finished are left out and the completed ones
// are still returned in order.
func (o *Orchestrator) SummarizeAll(ctx context.Context, articles []fetcher.Article) []ArticleSummary {
	results := make([]*ArticleSummary, len(articles))

	if o.workers == 1 {
		for i, a := range articles {
			if ctx.Err() != nil {
				break
			}
			o.logger.Info("summarizing", "progress", fmt.Sprintf("%d/%d", i+1, len(articles)), "title", a.Title)
			s, err := o.SummarizeArticle(ctx, a)
			if err != nil {
				break
			}
			results[i] = &s
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for i, a := range articles {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				o.logger.Info("summarizing", "progress", fmt.Sprintf("%d/%d", i+1, len(articles)), "title", a.Title)
				s, err := o.SummarizeArticle(ctx, a)
				if err == nil {
					results[i] = &s
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make([]ArticleSummary, 0, len(articles))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) < len(articles) {
		o.logger.Warn("summarization interrupted", "completed", len(out), "total", len(articles))
	}
	return out
}

// call performs one LLM request, waiting on the shared limiter first. Blank
// output is treated as a failure.
func (o *Orchestrator) call(ctx context.Context, fn func() (string, error)) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	text, err := fn()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (o *Orchestrator) succeed(ctx context.Context, log *slog.Logger, a fetcher.Article, text string, tier Tier) ArticleSummary {
	log.Info("tier succeeded", "tier", tier)
	o.pause(ctx)
	return ArticleSummary{Article: a, Summary: text, Tier: tier}
}

func (o *Orchestrator) pause(ctx context.Context) {
	if o.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.delay):
	}
}

func fallbackSummary(native string) string {
	excerpt := native
	if r := []rune(native); len(r) > fallbackExcerptRunes {
		excerpt = string(r[:fallbackExcerptRunes])
	}
	if excerpt == "" {
		excerpt = noSummaryText
	}
	return fmt.Sprintf("**核心观点**: %s\n\n**关键要点**:\n- 原文需要人工查看", excerpt)
}
