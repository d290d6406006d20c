package news

import (
	"strings"
	"time"

	"github.com/finrelay/gateway/provider"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// parseTimestamp best-effort parses Published using a fixed set of
// layouts, returning nil if none match.
func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// parseBlock parses one provider's raw text block into articles.
// Records are separated by a blank line; each record is a set of
// "Key: value" lines. Records lacking both a title and a URL are
// discarded.
func parseBlock(id provider.ID, block string) []Article {
	var articles []Article

	for _, rec := range splitRecords(block) {
		fields := parseFields(rec)

		title := sanitize(fields["title"])
		url := sanitizeURL(fields["url"])
		publisher := sanitize(fields["publisher"])

		if title == "" && url == "" {
			continue
		}

		var tickers []string
		if raw, ok := fields["related tickers"]; ok {
			for _, t := range strings.Split(raw, ",") {
				if t := sanitize(t); t != "" {
					tickers = append(tickers, t)
				}
			}
		}

		articles = append(articles, Article{
			Title:          title,
			URL:            url,
			Publisher:      publisher,
			ProviderID:     id,
			PublishedAt:    parseTimestamp(fields["published"]),
			RelatedTickers: dedupeTickersCaseInsensitive(tickers),
			Sources:        []Source{{ProviderID: id, URL: url, Publisher: publisher}},
		})
	}

	return articles
}

// splitRecords splits a block on blank lines (one or more consecutive
// blank lines count as a single separator).
func splitRecords(block string) []string {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")

	var records []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			records = append(records, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return records
}

// parseFields parses "Key: value" lines into a lowercase-keyed map.
// Only the recognized keys (Title, Publisher, Published, URL, Related
// Tickers) are retained.
func parseFields(record string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(record, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		switch key {
		case "title", "publisher", "published", "url", "related tickers":
			fields[key] = value
		}
	}
	return fields
}

// ParseAll parses every provider's block, respecting a combined cap
// (clamped to [1, 200]) across all providers. Blocks are visited in the
// caller-supplied order — the resolved chain/fallback order — so that
// whichever article ends up first within a cluster during clustering
// reflects chain order, not ProviderID string order.
func ParseAll(blocks []ProviderBlock, maxArticlesForComparison int) []Article {
	cap := maxArticlesForComparison
	if cap < 1 {
		cap = 1
	}
	if cap > 200 {
		cap = 200
	}

	var all []Article
	for _, b := range blocks {
		for _, a := range parseBlock(b.ID, b.Block) {
			if len(all) >= cap {
				return all
			}
			all = append(all, a)
		}
	}
	return all
}
