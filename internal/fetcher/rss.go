package fetcher

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/ryosukesatoh/rss-digest/internal/opml"
)

// RSSFetcher parses RSS, Atom and JSON feeds with gofeed.
type RSSFetcher struct {
	client *http.Client
	policy *bluemonday.Policy
	logger *slog.Logger
}

func NewRSSFetcher(timeout time.Duration, logger *slog.Logger) *RSSFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RSSFetcher{
		client: &http.Client{Timeout: timeout},
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, feed opml.Feed, now time.Time) ([]Article, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = "rss-digest/1.0"

	parsed, err := parser.ParseURLWithContext(feed.XMLURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to parse %s: %w", feed.XMLURL, err)
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if a, ok := f.toArticle(item, feed, now); ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

func (f *RSSFetcher) toArticle(item *gofeed.Item, feed opml.Feed, now time.Time) (Article, bool) {
	if item == nil {
		return Article{}, false
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Article{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = untitledTitle
	}

	published, ok := entryDate(item)
	if !ok {
		f.logger.Debug("skipping entry without a usable date", "feed", feed.Title, "title", title)
		return Article{}, false
	}
	if !plausible(published, now) {
		f.logger.Debug("skipping entry with implausible date", "feed", feed.Title, "title", title, "published", published)
		return Article{}, false
	}

	raw := item.Description
	if raw == "" {
		raw = item.Content
	}

	return Article{
		Title:     title,
		URL:       link,
		Published: published,
		Summary:   truncateRunes(f.stripHTML(raw), MaxSummaryRunes),
		FeedTitle: feed.Title,
		Category:  feed.Category,
	}, true
}

// entryDate prefers the published date, then the updated date, and falls back
// to lenient parsing of the raw strings gofeed could not interpret.
func entryDate(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC(), true
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC(), true
	}
	for _, raw := range []string{item.Published, item.Updated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (f *RSSFetcher) stripHTML(s string) string {
	text := html.UnescapeString(f.policy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
