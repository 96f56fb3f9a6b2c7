// Package report renders summaries into the daily Markdown digest and reads
// archived digests back.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

const (
	dateLayout      = "2006-01-02"
	publishedLayout = "2006-01-02 15:04"
	footerLayout    = "2006-01-02 15:04:05"
)

// Digest is one rendered daily report together with the data it was built from.
type Digest struct {
	Date        time.Time
	GeneratedAt time.Time
	Summaries   []summarizer.ArticleSummary
	Stats       summarizer.Stats
	Markdown    string
}

// FileName is the archive file name for the digest, e.g. 2025-01-15.md.
func (d *Digest) FileName() string {
	return d.Date.Format(dateLayout) + ".md"
}

// Empty reports whether the digest has no articles.
func (d *Digest) Empty() bool {
	return len(d.Summaries) == 0
}

// RenderDigest builds the digest, choosing the empty-day document when there
// is nothing to report.
func RenderDigest(summaries []summarizer.ArticleSummary, date, generatedAt time.Time) *Digest {
	d := &Digest{
		Date:        date,
		GeneratedAt: generatedAt,
		Summaries:   summaries,
		Stats:       summarizer.CountTiers(summaries),
	}
	if len(summaries) == 0 {
		d.Markdown = RenderEmpty(date, generatedAt)
	} else {
		d.Markdown = Render(summaries, date, generatedAt)
	}
	return d
}

// Render produces the grouped digest. Categories are sorted; articles keep
// their input order inside a category. Publication times are shown in
// generatedAt's location.
func Render(summaries []summarizer.ArticleSummary, date, generatedAt time.Time) string {
	byCategory := make(map[string][]summarizer.ArticleSummary)
	for _, s := range summaries {
		byCategory[s.Article.Category] = append(byCategory[s.Article.Category], s)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	stats := summarizer.CountTiers(summaries)
	loc := generatedAt.Location()

	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add(
		"# RSS Digest - "+date.Format(dateLayout),
		"",
		fmt.Sprintf("> 本日共收录 **%d** 篇文章，来自 **%d** 个分类。", len(summaries), len(categories)),
		">",
		fmt.Sprintf("> 📊 内容获取统计：LLM直读 %d | Jina Reader %d | RSS降级 %d",
			stats[summarizer.TierDirect], stats[summarizer.TierExtracted], stats[summarizer.TierNativeFallback]),
		"",
		"---",
		"",
	)

	for _, category := range categories {
		add("## "+category, "")
		for _, s := range byCategory[category] {
			a := s.Article
			add(
				fmt.Sprintf("### [%s](%s)", a.Title, a.URL),
				fmt.Sprintf("> 来源: %s | 发布时间: %s", a.FeedTitle, a.Published.In(loc).Format(publishedLayout)),
				"",
				s.Summary,
				"",
				"---",
				"",
			)
		}
	}

	add(footer(generatedAt))
	return strings.Join(lines, "\n")
}

// RenderEmpty produces the document written on days without new articles.
func RenderEmpty(date, generatedAt time.Time) string {
	return fmt.Sprintf("# RSS Digest - %s\n\n> 📭 今日无新文章收录。\n\n---\n\n%s\n",
		date.Format(dateLayout), footer(generatedAt))
}

func footer(generatedAt time.Time) string {
	return fmt.Sprintf("*Generated at %s (%s)*", generatedAt.Format(footerLayout), generatedAt.Format("MST"))
}
