// Package news implements the news deduplicator: it parses per-provider
// text blocks into articles, clusters near-duplicates across providers,
// merges clusters with source attribution, and re-serializes the result
// to the same block format.
package news

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/finrelay/gateway/provider"
)

const maxFieldLen = 512

// ProviderBlock pairs one provider's raw text block with its identity,
// in the caller's resolved chain order. ParseAll and Dedupe preserve
// this order rather than re-deriving one by sorting ProviderID, so the
// first article in a cluster — and therefore the merged article's
// canonical Title/URL/Publisher/ProviderID — follows chain/fallback
// order, not alphabetical provider-id order.
type ProviderBlock struct {
	ID    provider.ID
	Block string
}

// Source identifies one provider's contribution to an (possibly merged)
// article.
type Source struct {
	ProviderID provider.ID
	URL        string
	Publisher  string
}

// Article is the typed, internal representation of a news item. It is
// created for the lifetime of a single request and never persisted.
type Article struct {
	Title          string
	URL            string
	Publisher      string
	ProviderID     provider.ID
	PublishedAt    *time.Time
	RelatedTickers []string
	Sources        []Source
	IsMerged       bool
	MergedCount    int
}

// sanitize strips control characters and angle brackets, collapses
// whitespace runs to a single space, trims, and truncates to 512 runes.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if r == '<' || r == '>' {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	out := strings.TrimSpace(b.String())
	runes := []rune(out)
	if len(runes) > maxFieldLen {
		runes = runes[:maxFieldLen]
	}
	return string(runes)
}

// sanitizeURL returns url unchanged if it parses as an absolute http(s)
// URL, otherwise "".
func sanitizeURL(raw string) string {
	raw = sanitize(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	return raw
}

// dedupeTickersCaseInsensitive deduplicates related tickers by
// case-insensitive equality, keeping the first-seen casing, without
// reordering.
func dedupeTickersCaseInsensitive(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// dedupeSources deduplicates sources by the (providerId, url, publisher)
// triple and sorts the result by ProviderID.
func dedupeSources(sources []Source) []Source {
	type key struct{ providerID, url, publisher string }
	seen := make(map[key]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		k := key{string(s.ProviderID), s.URL, s.Publisher}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}
