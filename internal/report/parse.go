package report

import (
	"regexp"
	"strings"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/fetcher"
	"github.com/ryosukesatoh/rss-digest/internal/opml"
	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

var (
	categoryHeader = regexp.MustCompile(`(?m)^## (.+)$`)
	articleHeader  = regexp.MustCompile(`### \[(.+?)\]\((.+?)\)[ \t]*\n> 来源: (.+?) \| 发布时间: (\d{4}-\d{2}-\d{2} \d{2}:\d{2})[ \t]*\n\n`)
	fileDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// entrySeparator is the rule Render writes after every summary. Summaries may
// contain rules of their own, so only the last one before the next entry
// ends the body.
const entrySeparator = "\n\n---\n"

// Parse recovers article summaries from a rendered digest. The tier is not
// recorded in the document, so every entry is reported as TierExtracted, and
// the feed's native summary is lost. Times are read in fileDate's location;
// an unreadable time falls back to midnight of fileDate.
func Parse(content string, fileDate time.Time) []summarizer.ArticleSummary {
	var out []summarizer.ArticleSummary
	loc := fileDate.Location()
	midnight := time.Date(fileDate.Year(), fileDate.Month(), fileDate.Day(), 0, 0, 0, 0, loc)

	headers := categoryHeader.FindAllStringSubmatchIndex(content, -1)
	for i, h := range headers {
		category := strings.TrimSpace(content[h[2]:h[3]])
		if category == "" {
			category = opml.DefaultCategory
		}
		end := len(content)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := content[h[1]:end]

		matches := articleHeader.FindAllStringSubmatchIndex(section, -1)
		for j, m := range matches {
			bodyEnd := len(section)
			if j+1 < len(matches) {
				bodyEnd = matches[j+1][0]
			}
			body := section[m[1]:bodyEnd]
			if k := strings.LastIndex(body, entrySeparator); k >= 0 {
				body = body[:k]
			}

			published, err := time.ParseInLocation(publishedLayout, section[m[8]:m[9]], loc)
			if err != nil {
				published = midnight
			}

			out = append(out, summarizer.ArticleSummary{
				Article: fetcher.Article{
					Title:     strings.TrimSpace(section[m[2]:m[3]]),
					URL:       strings.TrimSpace(section[m[4]:m[5]]),
					FeedTitle: strings.TrimSpace(section[m[6]:m[7]]),
					Published: published.UTC(),
					Category:  category,
				},
				Summary: strings.TrimSpace(body),
				Tier:    summarizer.TierExtracted,
			})
		}
	}
	return out
}

// DateFromFileName extracts the YYYY-MM-DD date embedded in an archive file
// name, interpreted in loc.
func DateFromFileName(name string, loc *time.Location) (time.Time, bool) {
	m := fileDateRe.FindString(name)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, m, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
