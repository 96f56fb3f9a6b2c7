package summarizer

import (
	"github.com/ryosukesatoh/rss-digest/internal/fetcher"
)

// Tier identifies which content source produced a summary.
type Tier int

const (
	// TierDirect: the model read the article URL itself.
	TierDirect Tier = iota
	// TierExtracted: the page text came from a content resolver.
	TierExtracted
	// TierNativeFallback: the feed's own summary was used, either through
	// the model or verbatim when every LLM attempt failed.
	TierNativeFallback

	tierCount
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "LLM_DIRECT"
	case TierExtracted:
		return "EXTRACTED_CONTENT"
	case TierNativeFallback:
		return "NATIVE_FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// ArticleSummary pairs an article with its generated summary.
type ArticleSummary struct {
	Article fetcher.Article `json:"article"`
	Summary string          `json:"summary"`
	Tier    Tier            `json:"tier"`
}

// Stats counts summaries per tier.
type Stats [tierCount]int

func CountTiers(summaries []ArticleSummary) Stats {
	var s Stats
	for _, sum := range summaries {
		if sum.Tier >= 0 && sum.Tier < tierCount {
			s[sum.Tier]++
		}
	}
	return s
}

func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}
