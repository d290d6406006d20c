package news

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrelay/gateway/provider"
)

func TestDedupe_MergesByURL(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "alpha", Block: "Title: Fed raises rates\nPublisher: Alpha Wire\nPublished: 2024-01-02 10:00:00\nURL: https://example.com/fed-raises\n"},
		{ID: "beta", Block: "Title: Fed Raises Rates Again\nPublisher: Beta News\nPublished: 2024-01-02 09:00:00\nURL: https://EXAMPLE.com/fed-raises\n"},
	}

	out, err := Dedupe(context.Background(), blocks, Config{SimilarityThreshold: 0.8, MaxArticlesForComparison: 50})
	require.NoError(t, err)

	assert.Contains(t, out, "Merged Count: 1")
	assert.Contains(t, out, "Published: 2024-01-02 09:00:00")
	assert.NotContains(t, out, "alpha")
	assert.NotContains(t, out, "beta")
}

func TestDedupe_DistinctArticlesStaySeparate(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "alpha", Block: "Title: Company A reports earnings\nPublisher: Alpha Wire\nURL: https://example.com/a\n"},
		{ID: "beta", Block: "Title: Company B signs merger deal\nPublisher: Beta News\nURL: https://example.com/b\n"},
	}

	out, err := Dedupe(context.Background(), blocks, Config{SimilarityThreshold: 0.9, MaxArticlesForComparison: 50})
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Title:"))
}

func TestDedupe_DiscardsRecordsMissingTitleAndURL(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "alpha", Block: "Publisher: Alpha Wire\nPublished: 2024-01-02 10:00:00\n"},
	}

	out, err := Dedupe(context.Background(), blocks, Config{SimilarityThreshold: 0.8, MaxArticlesForComparison: 50})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDedupe_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocks := []ProviderBlock{
		{ID: "alpha", Block: "Title: A\nURL: https://example.com/a\n"},
	}

	_, err := Dedupe(ctx, blocks, Config{SimilarityThreshold: 0.8, MaxArticlesForComparison: 50})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupe_NeverLeaksProviderID(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "internal-provider-seven", Block: "Title: A story\nPublisher: Wire One\nURL: https://example.com/a\n"},
		{ID: "internal-provider-eight", Block: "Title: A completely different story\nPublisher: Wire Two\nURL: https://example.com/b\n"},
	}

	out, err := Dedupe(context.Background(), blocks, Config{SimilarityThreshold: 0.9, MaxArticlesForComparison: 50})
	require.NoError(t, err)
	assert.NotContains(t, out, "internal-provider")
}

// TestDedupe_PrimaryAttributionFollowsChainOrderNotAlphabeticalID pins
// down the merge policy's primary-member selection: with a chain
// ordered [premium, free] ("free" < "premium" lexically), the merged
// article must still take its canonical Publisher from the first
// chain-ordered block, not from whichever ProviderID sorts first.
func TestDedupe_PrimaryAttributionFollowsChainOrderNotAlphabeticalID(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "premiumProvider", Block: "Title: Fed raises rates\nPublisher: Premium Wire\nURL: https://example.com/fed\n"},
		{ID: "freeProvider", Block: "Title: Fed Raises Rates\nPublisher: Free Wire\nURL: https://example.com/fed\n"},
	}

	out, err := Dedupe(context.Background(), blocks, Config{SimilarityThreshold: 0.8, MaxArticlesForComparison: 50})
	require.NoError(t, err)

	assert.Contains(t, out, "Publisher: Premium Wire")
	assert.NotContains(t, out, "Publisher: Free Wire")
}

func TestSanitizeURL_RejectsNonAbsoluteHTTP(t *testing.T) {
	assert.Equal(t, "", sanitizeURL("ftp://example.com/a"))
	assert.Equal(t, "", sanitizeURL("not a url"))
	assert.Equal(t, "https://example.com/a", sanitizeURL("https://example.com/a"))
}

func TestParseAll_RespectsCombinedCap(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "alpha", Block: "Title: One\nURL: https://example.com/1\n\nTitle: Two\nURL: https://example.com/2\n"},
		{ID: "beta", Block: "Title: Three\nURL: https://example.com/3\n"},
	}

	articles := ParseAll(blocks, 2)
	assert.Len(t, articles, 2)
}

func TestParseAll_PreservesCallerOrderOverProviderID(t *testing.T) {
	blocks := []ProviderBlock{
		{ID: "zeta", Block: "Title: From zeta\nURL: https://example.com/z\n"},
		{ID: "alpha", Block: "Title: From alpha\nURL: https://example.com/a\n"},
	}

	articles := ParseAll(blocks, 50)
	require.Len(t, articles, 2)
	assert.Equal(t, provider.ID("zeta"), articles[0].ProviderID)
	assert.Equal(t, provider.ID("alpha"), articles[1].ProviderID)
}
