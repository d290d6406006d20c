// Package router resolves a data type to a provider chain, executes it
// in failover or aggregation mode against the health monitor and
// circuit breakers, and hands successful news payloads to the
// deduplicator.
package router

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finrelay/gateway/breaker"
	"github.com/finrelay/gateway/classify"
	"github.com/finrelay/gateway/config"
	"github.com/finrelay/gateway/health"
	"github.com/finrelay/gateway/provider"
)

// Router is the data-type-agnostic routing core. It is safe for
// concurrent use; a process typically constructs one Router for its
// lifetime.
type Router struct {
	cfg      *config.Config
	registry *provider.Registry
	health   *health.Monitor
	logger   *zap.Logger

	mu       sync.Mutex
	breakers map[provider.ID]*breaker.Breaker
}

// New constructs a Router over the given immutable config snapshot,
// provider registry, and health monitor.
func New(cfg *config.Config, registry *provider.Registry, monitor *health.Monitor, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		registry: registry,
		health:   monitor,
		logger:   logger,
		breakers: make(map[provider.ID]*breaker.Breaker),
	}
}

// breakerFor returns (creating lazily on first observation) the
// breaker for id, configured from the global circuit-breaker defaults.
func (r *Router) breakerFor(id provider.ID) *breaker.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[id]; ok {
		return b
	}

	cbCfg := r.cfg.CircuitBreaker
	b := breaker.New(id, breaker.Config{
		FailureThreshold: uint32(cbCfg.FailureThreshold),
		HalfOpenAfter:    time.Duration(cbCfg.HalfOpenAfterSeconds) * time.Second,
		TimeoutSeconds:   cbCfg.TimeoutSeconds,
		Disabled:         !cbCfg.Enabled,
	}, r.logger, nil)
	r.breakers[id] = b
	return b
}

// resolveChain builds the ordered, deduplicated, registry-filtered
// provider chain for a data type, and reports whether aggregation mode
// applies.
func (r *Router) resolveChain(dataType provider.DataType) (chain []provider.ID, aggregate bool, timeoutSeconds int) {
	if entry, ok := r.cfg.Routing.DataTypeRouting[dataType]; ok {
		raw := append([]string{entry.PrimaryProviderID}, entry.FallbackProviderIDs...)
		chain = dedupeFilterIDs(raw, r.registry, dataType)
		return chain, entry.AggregateResults, entry.TimeoutSeconds
	}

	var raw []string
	for _, p := range r.cfg.EnabledProvidersByPriority() {
		raw = append(raw, p.ID)
	}
	chain = dedupeFilterIDs(raw, r.registry, dataType)

	aggregate = dataType == provider.News || dataType == provider.MarketNews
	return chain, aggregate, 0
}

// dedupeFilterIDs dedups raw provider IDs, drops any not registered,
// and drops any registered provider that doesn't declare capability for
// dataType — a chain entry naming a provider that can't actually serve
// the requested data type is as unusable as one naming an unregistered
// provider, so both are filtered before the chain is ever attempted.
func dedupeFilterIDs(raw []string, registry *provider.Registry, dataType provider.DataType) []provider.ID {
	seen := make(map[provider.ID]struct{}, len(raw))
	var out []provider.ID
	for _, s := range raw {
		id := provider.ID(s)
		if !registry.SupportsDataType(id, dataType) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// call is the signature every typed wrapper method in ops.go adapts
// its Adapter method to.
type call func(ctx context.Context, adapter provider.Adapter) (string, error)

// route resolves the chain for dataType and executes call in failover
// or aggregation mode, returning the final textual payload or an
// AggregateFailure (shaped per the final error-shaping table) or a
// propagated cancellation.
func (r *Router) route(ctx context.Context, dataType provider.DataType, fn call) (string, error) {
	chain, aggregate, timeoutSeconds := r.resolveChain(dataType)

	callCtx := ctx
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}

	if aggregate {
		return r.routeAggregate(callCtx, dataType, chain, fn)
	}
	return r.routeFailover(callCtx, dataType, chain, fn)
}

// routeFailover iterates the chain in strict order, stopping at the
// first success, any caller cancellation, or a terminal NotFound.
func (r *Router) routeFailover(ctx context.Context, dataType provider.DataType, chain []provider.ID, fn call) (string, error) {
	attempted := make([]provider.ID, 0, len(chain))
	errs := make(map[provider.ID]providerError, len(chain))

	for _, id := range chain {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if !r.health.IsHealthy(id) {
			continue
		}

		attempted = append(attempted, id)
		payload, err := r.attempt(ctx, id, fn)
		if err == nil {
			return payload, nil
		}

		if classify.IsCancellation(err) {
			return "", err
		}

		kind := classify.Classify(err)
		errs[id] = providerError{kind: kind, message: err.Error()}

		if kind == classify.NotFound {
			break
		}
	}

	return "", newAggregateFailure(dataType, attempted, errs)
}

// attempt runs fn for a single provider through its breaker, recording
// the outcome with the health monitor.
func (r *Router) attempt(ctx context.Context, id provider.ID, fn call) (string, error) {
	adapter, ok := r.registry.Get(id)
	if !ok {
		return "", &classify.ServiceErr{Message: "provider not registered"}
	}

	b := r.breakerFor(id)
	start := time.Now()

	var payload string
	err := b.Execute(ctx, func(ctx context.Context) error {
		p, callErr := fn(ctx, adapter)
		payload = p
		return callErr
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		r.health.RecordSuccess(id, elapsed)
		return payload, nil
	case classify.IsCancellation(err):
		return "", err
	case errors.Is(err, breaker.ErrCircuitOpen):
		r.health.RecordFailure(id, classify.ServiceError)
		return "", err
	default:
		r.health.RecordFailure(id, classify.Classify(err))
		return "", err
	}
}

// HealthSnapshot exposes read-only health introspection for id.
func (r *Router) HealthSnapshot(id provider.ID) health.Status {
	return r.health.Status(id)
}

// BreakerMetrics exposes read-only breaker introspection for id.
func (r *Router) BreakerMetrics(id provider.ID) breaker.Metrics {
	return r.breakerFor(id).Metrics()
}

// KnownProviders returns every registered provider ID, sorted.
func (r *Router) KnownProviders() []provider.ID {
	ids := r.registry.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
