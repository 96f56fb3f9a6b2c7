// Package opml reads subscription lists and flattens their folder tree into
// feeds tagged with a category.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCategory is assigned to feeds that sit outside any folder.
const DefaultCategory = "Uncategorized"

// Feed is a single subscription.
type Feed struct {
	Title    string
	XMLURL   string
	HTMLURL  string
	Category string
}

type document struct {
	XMLName xml.Name `xml:"opml"`
	Body    *body    `xml:"body"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr"`
	XMLURL   string    `xml:"xmlUrl,attr"`
	HTMLURL  string    `xml:"htmlUrl,attr"`
	Outlines []outline `xml:"outline"`
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opml: failed to open %s: %w", path, err)
	}
	defer f.Close()

	feeds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return feeds, nil
}

// Parse walks every outline in document order. An outline with an xmlUrl is a
// feed; any other outline is a folder whose text names the category of the
// feeds nested directly or indirectly beneath it (the innermost folder wins).
// A document without a <body> yields no feeds.
func Parse(r io.Reader) ([]Feed, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("opml: failed to parse XML: %w", err)
	}
	var feeds []Feed
	if doc.Body == nil {
		return feeds, nil
	}
	walk(doc.Body.Outlines, "", &feeds)
	return feeds, nil
}

func walk(outlines []outline, category string, feeds *[]Feed) {
	for _, o := range outlines {
		if o.XMLURL != "" {
			cat := category
			if cat == "" {
				cat = DefaultCategory
			}
			*feeds = append(*feeds, Feed{
				Title:    firstNonEmpty(o.Text, o.Title, "Unknown"),
				XMLURL:   strings.TrimSpace(o.XMLURL),
				HTMLURL:  o.HTMLURL,
				Category: cat,
			})
			continue
		}
		walk(o.Outlines, firstNonEmpty(o.Text, o.Title), feeds)
	}
}

// Categories returns the distinct categories in first-seen order.
func Categories(feeds []Feed) []string {
	seen := make(map[string]struct{}, len(feeds))
	var categories []string
	for _, f := range feeds {
		if _, ok := seen[f.Category]; ok {
			continue
		}
		seen[f.Category] = struct{}{}
		categories = append(categories, f.Category)
	}
	return categories
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
