package news

import (
	"fmt"
	"sort"
	"strings"
)

const unknownPublished = "Unknown"

// Serialize re-emits articles as blank-line-separated text blocks.
// ProviderIDs never appear in output: the Sources line carries
// publisher labels only, falling back to generic "Source N" labels
// when no publisher names are available.
func Serialize(articles []Article) string {
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		blocks = append(blocks, serializeOne(a))
	}
	return strings.Join(blocks, "\n\n")
}

func serializeOne(a Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	fmt.Fprintf(&b, "Publisher: %s\n", a.Publisher)

	if a.PublishedAt != nil {
		fmt.Fprintf(&b, "Published: %s\n", a.PublishedAt.UTC().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(&b, "Published: %s\n", unknownPublished)
	}

	if len(a.RelatedTickers) > 0 {
		fmt.Fprintf(&b, "Related Tickers: %s\n", strings.Join(a.RelatedTickers, ", "))
	}

	if a.IsMerged {
		if labels := sourceLabels(a.Sources); len(labels) > 0 {
			fmt.Fprintf(&b, "Sources: %s\n", strings.Join(labels, ", "))
		}
	}

	fmt.Fprintf(&b, "URL: %s\n", a.URL)

	if a.IsMerged {
		fmt.Fprintf(&b, "Merged Count: %d\n", a.MergedCount)
	}

	return strings.TrimRight(b.String(), "\n")
}

// sourceLabels builds the publisher-only labels for a Sources line,
// deduplicated case-insensitively and sorted alphabetically. Sources
// with no publisher name fall back to generic "Source N" labels.
func sourceLabels(sources []Source) []string {
	seen := make(map[string]struct{}, len(sources))
	var named []string
	unnamedCount := 0

	for _, s := range sources {
		p := strings.TrimSpace(s.Publisher)
		if p == "" {
			unnamedCount++
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		named = append(named, p)
	}

	sort.Slice(named, func(i, j int) bool {
		return strings.ToLower(named[i]) < strings.ToLower(named[j])
	})

	for i := 1; i <= unnamedCount; i++ {
		named = append(named, fmt.Sprintf("Source %d", i))
	}

	return named
}
