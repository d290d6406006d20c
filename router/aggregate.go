package router

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/finrelay/gateway/classify"
	"github.com/finrelay/gateway/news"
	"github.com/finrelay/gateway/provider"
)

// providerError is one provider's shaped failure, kept alongside
// AggregateFailure.ProviderErrors.
type providerError struct {
	kind    classify.Kind
	message string
}

// AggregateFailure is raised when a chain is exhausted (failover) or
// every parallel peer fails (aggregation). Its Kind is derived by
// shapeKind from the distribution of per-provider error kinds.
type AggregateFailure struct {
	DataType           provider.DataType
	Kind               classify.Kind
	AttemptedProviders []provider.ID
	ProviderErrors     map[provider.ID]string
}

func (f *AggregateFailure) Error() string {
	return fmt.Sprintf("%s: all %d attempted provider(s) failed (%s)", f.DataType, len(f.AttemptedProviders), f.Kind)
}

func newAggregateFailure(dataType provider.DataType, attempted []provider.ID, errs map[provider.ID]providerError) *AggregateFailure {
	providerErrors := make(map[provider.ID]string, len(errs))
	kinds := make(map[classify.Kind]int, len(errs))
	for id, pe := range errs {
		providerErrors[id] = pe.message
		kinds[pe.kind]++
	}
	return &AggregateFailure{
		DataType:           dataType,
		Kind:               shapeKind(kinds, len(errs)),
		AttemptedProviders: attempted,
		ProviderErrors:     providerErrors,
	}
}

// shapeKind implements the final error-shaping table: all-NotFound
// surfaces NotFound, all-RateLimitExceeded surfaces RateLimitExceeded,
// anything else surfaces ServiceError.
func shapeKind(kinds map[classify.Kind]int, total int) classify.Kind {
	if total == 0 {
		return classify.ServiceError
	}
	if kinds[classify.NotFound] == total {
		return classify.NotFound
	}
	if kinds[classify.RateLimitExceeded] == total {
		return classify.RateLimitExceeded
	}
	return classify.ServiceError
}

// routeAggregate launches one call per eligible provider in parallel,
// waits for all to settle respecting ctx cancellation, and merges the
// successes (deduplicating news payloads when applicable).
func (r *Router) routeAggregate(ctx context.Context, dataType provider.DataType, chain []provider.ID, fn call) (string, error) {
	type outcome struct {
		id      provider.ID
		payload string
		err     error
	}

	results := make([]outcome, len(chain))
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range chain {
		i, id := i, id
		g.Go(func() error {
			if !r.health.IsHealthy(id) {
				results[i] = outcome{id: id, err: &classify.ServiceErr{Message: "skipped: unhealthy"}}
				return nil
			}
			payload, err := r.attempt(gctx, id, fn)
			results[i] = outcome{id: id, payload: payload, err: err}
			if classify.IsCancellation(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	attempted := make([]provider.ID, 0, len(chain))
	errs := make(map[provider.ID]providerError, len(chain))
	successes := make(map[provider.ID]string, len(chain))

	for _, o := range results {
		attempted = append(attempted, o.id)
		if o.err == nil {
			successes[o.id] = o.payload
			continue
		}
		errs[o.id] = providerError{kind: classify.Classify(o.err), message: o.err.Error()}
	}

	if len(successes) == 0 {
		return "", newAggregateFailure(dataType, attempted, errs)
	}

	payloads := make(map[provider.ID]string, len(successes))
	var ordered []provider.ID
	for _, id := range chain {
		if p, ok := successes[id]; ok {
			payloads[id] = p
			ordered = append(ordered, id)
		}
	}

	rawMerge := func() string {
		parts := make([]string, 0, len(ordered))
		for _, id := range ordered {
			parts = append(parts, payloads[id])
		}
		return strings.Join(parts, "\n\n")
	}

	isNews := dataType == provider.News || dataType == provider.MarketNews
	if !isNews || !r.cfg.NewsDeduplication.Enabled {
		return rawMerge(), nil
	}

	dedupInput := make([]news.ProviderBlock, 0, len(ordered))
	for _, id := range ordered {
		dedupInput = append(dedupInput, news.ProviderBlock{ID: id, Block: payloads[id]})
	}

	deduped, err := news.Dedupe(ctx, dedupInput, news.Config{
		SimilarityThreshold:      r.cfg.NewsDeduplication.SimilarityThreshold,
		MaxArticlesForComparison: r.cfg.NewsDeduplication.MaxArticlesForComparison,
	})
	if err != nil {
		r.logger.Sugar().Debugw("news deduplication failed, falling back to raw merge",
			"dataType", dataType, "error", err)
		return rawMerge(), nil
	}

	return deduped, nil
}
