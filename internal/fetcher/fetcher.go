package fetcher

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/opml"
)

const (
	// MaxSummaryRunes caps the native summary kept on each article.
	MaxSummaryRunes = 500

	maxAge        = 365 * 24 * time.Hour
	maxClockSkew  = 24 * time.Hour
	untitledTitle = "Untitled"
)

// Article is a feed entry that passed the date sanity bounds. Published is
// always in UTC.
type Article struct {
	Title     string
	URL       string
	Published time.Time
	Summary   string
	FeedTitle string
	Category  string
}

// Fetcher retrieves the usable entries of a single feed. Entries without a
// link or a plausible publication date are dropped here, never returned.
type Fetcher interface {
	Fetch(ctx context.Context, feed opml.Feed, now time.Time) ([]Article, error)
}

// plausible reports whether published falls within [now-1y, now+24h].
func plausible(published, now time.Time) bool {
	if published.After(now.Add(maxClockSkew)) {
		return false
	}
	if published.Before(now.Add(-maxAge)) {
		return false
	}
	return true
}

// FetchRecent fetches every feed in order and keeps the articles published at
// or after now-window, newest first. A feed that fails contributes nothing.
func FetchRecent(ctx context.Context, f Fetcher, feeds []opml.Feed, window time.Duration, now time.Time, logger *slog.Logger) []Article {
	cutoff := now.Add(-window)
	var all []Article

	for i, feed := range feeds {
		if ctx.Err() != nil {
			logger.Warn("feed fetching interrupted", "remaining", len(feeds)-i, "error", ctx.Err())
			break
		}

		logger.Info("fetching feed", "feed", feed.Title, "url", feed.XMLURL)
		articles, err := f.Fetch(ctx, feed, now)
		if err != nil {
			logger.Warn("feed fetch failed", "feed", feed.Title, "error", err)
			continue
		}

		recent := 0
		for _, a := range articles {
			if a.Published.Before(cutoff) {
				continue
			}
			all = append(all, a)
			recent++
		}
		logger.Info("feed fetched", "feed", feed.Title, "recent", recent, "total", len(articles))
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	return all
}
