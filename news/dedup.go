package news

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/finrelay/gateway/similarity"
)

// ErrTimeout is raised when deduplication exceeds its wall-clock budget.
// The router treats it (and any other error from Dedupe) as a signal to
// fall back to a raw merge of the successful payloads.
var ErrTimeout = errors.New("news: deduplication exceeded its time budget")

// Budget is the wall-clock allowance for a single deduplication call,
// measured against a 100-article input.
const Budget = 500 * time.Millisecond

// Config configures a single Dedupe call.
type Config struct {
	SimilarityThreshold      float64
	MaxArticlesForComparison int
}

// Dedupe parses, clusters, merges, and re-serializes the given
// per-provider blocks into a single deduplicated block. blocks must be
// in the router's resolved chain order: cluster's canonical member
// (used for the merged article's Title/URL/Publisher/ProviderID) is
// whichever article is visited first, so chain order — not ProviderID
// string order — decides primary-source attribution. Dedupe is a pure
// function of (blocks, cfg) aside from the wall-clock budget check and
// respects ctx cancellation at every outer-loop iteration of the
// clustering pass.
func Dedupe(ctx context.Context, blocks []ProviderBlock, cfg Config) (string, error) {
	deadline := time.Now().Add(Budget)

	articles := ParseAll(blocks, cfg.MaxArticlesForComparison)

	threshold := cfg.SimilarityThreshold
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	merged, err := cluster(ctx, articles, threshold, deadline)
	if err != nil {
		return "", err
	}

	order(merged)
	return Serialize(merged), nil
}

// cluster performs the quadratic clustering + merge pass described in
// the news deduplicator's algorithm.
func cluster(ctx context.Context, articles []Article, threshold float64, deadline time.Time) ([]Article, error) {
	consumed := make([]bool, len(articles))
	var result []Article

	for i := range articles {
		if consumed[i] {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		consumed[i] = true
		members := []Article{articles[i]}

		for j := i + 1; j < len(articles); j++ {
			if consumed[j] {
				continue
			}
			if sameCluster(articles[i], articles[j], threshold) {
				consumed[j] = true
				members = append(members, articles[j])
			}
		}

		result = append(result, mergeCluster(members))
	}

	return result, nil
}

func sameCluster(a, b Article, threshold float64) bool {
	if a.URL != "" && b.URL != "" && strings.EqualFold(a.URL, b.URL) {
		return true
	}
	return similarity.Score(a.Title, b.Title) >= threshold
}

// mergeCluster merges a single-linkage cluster of one or more articles.
func mergeCluster(members []Article) Article {
	if len(members) == 1 {
		a := members[0]
		a.IsMerged = false
		a.MergedCount = 0
		return a
	}

	primary := members[0]
	merged := Article{
		Title:       primary.Title,
		URL:         primary.URL,
		Publisher:   primary.Publisher,
		ProviderID:  primary.ProviderID,
		IsMerged:    true,
		MergedCount: len(members) - 1,
	}

	var tickers []string
	var sources []Source
	for _, m := range members {
		tickers = append(tickers, m.RelatedTickers...)
		sources = append(sources, m.Sources...)
		if m.PublishedAt != nil {
			if merged.PublishedAt == nil || m.PublishedAt.Before(*merged.PublishedAt) {
				t := *m.PublishedAt
				merged.PublishedAt = &t
			}
		}
	}

	merged.RelatedTickers = dedupeTickersCaseInsensitive(tickers)
	sort.Slice(merged.RelatedTickers, func(i, j int) bool {
		return strings.ToLower(merged.RelatedTickers[i]) < strings.ToLower(merged.RelatedTickers[j])
	})
	merged.Sources = dedupeSources(sources)

	return merged
}

// order sorts articles by publishedAt descending (nulls last), with
// ties broken by case-insensitive title ascending.
func order(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.PublishedAt == nil && b.PublishedAt == nil {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
		if a.PublishedAt == nil {
			return false
		}
		if b.PublishedAt == nil {
			return true
		}
		if !a.PublishedAt.Equal(*b.PublishedAt) {
			return a.PublishedAt.After(*b.PublishedAt)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}
