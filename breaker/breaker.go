// Package breaker implements the per-provider circuit breaker: a
// three-state gate (Closed/Open/HalfOpen) that blocks calls to a
// misbehaving provider after sustained failure and re-admits exactly one
// probe after a cooldown.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/finrelay/gateway/classify"
	"github.com/finrelay/gateway/provider"
)

// State mirrors the three-state machine from spec §4.2, re-exported so
// callers outside this package never need to import gobreaker directly.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call outright:
// the circuit is open and the cooldown hasn't elapsed, or a half-open
// probe is already in flight.
var ErrCircuitOpen = errors.New("breaker: circuit is open")

// Config configures a single provider's breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the circuit from Closed to Open.
	FailureThreshold uint32
	// HalfOpenAfter is the cooldown after which an Open circuit admits a
	// single probe.
	HalfOpenAfter time.Duration
	// TimeoutSeconds, if > 0, is attached to ctx as a derived deadline
	// for every call; expiry is classified and recorded as Timeout.
	TimeoutSeconds int
	// Disabled, if true, makes Execute a passthrough with no gating.
	Disabled bool
}

// Metrics is a point-in-time snapshot of a breaker's state for
// introspection.
type Metrics struct {
	Name                 string
	State                State
	ConsecutiveFailures  uint32
	TotalSuccesses       uint64
	TotalFailures        uint64
	LastOpenedAt         time.Time
	LastHalfOpenAt       time.Time
	LastTransitionAt     time.Time
	HalfOpenInProgress   bool
}

// Breaker wraps a gobreaker.CircuitBreaker instance with the timeout and
// cancellation semantics spec §4.2/§5 require: caller cancellation is
// never recorded as a failure, and a configured TimeoutSeconds attaches a
// derived deadline whose expiry counts as a Timeout failure.
type Breaker struct {
	name    string
	cfg     Config
	logger  *zap.Logger
	gb      *gobreaker.CircuitBreaker

	mu               sync.Mutex
	lastOpenedAt     time.Time
	lastHalfOpenAt   time.Time
	lastTransitionAt time.Time
	halfOpenInFlight atomic.Bool

	metrics *promMetrics
}

type promMetrics struct {
	stateGauge prometheus.Gauge
	failures   prometheus.Counter
	trips      prometheus.Counter
}

// New creates a breaker for the given provider id.
func New(id provider.ID, cfg Config, logger *zap.Logger, registry *prometheus.Registry) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.HalfOpenAfter <= 0 {
		cfg.HalfOpenAfter = 30 * time.Second
	}

	b := &Breaker{
		name:   string(id),
		cfg:    cfg,
		logger: logger,
	}

	if registry != nil {
		b.metrics = &promMetrics{
			stateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Name:        "gateway_breaker_state",
				Help:        "Current breaker state (0=closed, 1=half-open, 2=open)",
				ConstLabels: prometheus.Labels{"provider": b.name},
			}),
			failures: prometheus.NewCounter(prometheus.CounterOpts{
				Name:        "gateway_breaker_failures_total",
				Help:        "Total number of recorded breaker failures",
				ConstLabels: prometheus.Labels{"provider": b.name},
			}),
			trips: prometheus.NewCounter(prometheus.CounterOpts{
				Name:        "gateway_breaker_trips_total",
				Help:        "Total number of times the breaker tripped open",
				ConstLabels: prometheus.Labels{"provider": b.name},
			}),
		}
		registry.MustRegister(b.metrics.stateGauge, b.metrics.failures, b.metrics.trips)
	}

	settings := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: 1, // exactly one in-flight probe while half-open
		Interval:    0, // never reset closed-state counts on a timer; only explicit Reset does
		Timeout:     cfg.HalfOpenAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.mu.Lock()
			now := time.Now()
			b.lastTransitionAt = now
			switch to {
			case gobreaker.StateOpen:
				b.lastOpenedAt = now
			case gobreaker.StateHalfOpen:
				b.lastHalfOpenAt = now
			}
			b.mu.Unlock()

			b.logger.Info("breaker state changed",
				zap.String("provider", name),
				zap.String("from", fromGobreaker(from).String()),
				zap.String("to", fromGobreaker(to).String()))

			if b.metrics != nil {
				switch to {
				case gobreaker.StateOpen:
					b.metrics.stateGauge.Set(2)
					b.metrics.trips.Inc()
				case gobreaker.StateHalfOpen:
					b.metrics.stateGauge.Set(1)
				case gobreaker.StateClosed:
					b.metrics.stateGauge.Set(0)
				}
			}
		},
	}
	b.gb = gobreaker.NewCircuitBreaker(settings)

	return b
}

// Execute runs op under the breaker's gate. If the breaker is configured
// with TimeoutSeconds > 0, op is given a context with a derived deadline;
// expiry is classified and recorded as a Timeout failure. Caller
// cancellation (ctx.Err() == context.Canceled, detected before and after
// the call) is propagated unchanged and never recorded as a failure; it
// also clears the half-open-in-progress flag so a later call may probe
// again.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.cfg.Disabled {
		return op(ctx)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if b.cfg.TimeoutSeconds > 0 {
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(b.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if fromGobreaker(b.gb.State()) == StateHalfOpen {
		b.halfOpenInFlight.Store(true)
	}

	_, err := b.gb.Execute(func() (interface{}, error) {
		opErr := op(callCtx)
		if opErr == nil {
			return nil, nil
		}

		if classify.IsCancellation(opErr) {
			// Never count cancellation as a failure. gobreaker has no
			// third outcome besides success/failure, so we report it as
			// a non-failure (success) to avoid tripping the breaker on
			// something the provider never actually failed to do.
			return nil, nil
		}

		if ctx.Err() == nil && callCtx.Err() != nil {
			// The derived deadline (not the caller) expired.
			opErr = fmt.Errorf("breaker timeout: %w", callCtx.Err())
		}

		if b.metrics != nil {
			b.metrics.failures.Inc()
		}
		return nil, opErr
	})

	b.halfOpenInFlight.Store(false)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrCircuitOpen
		}
		return err
	}

	if classify.IsCancellation(ctx.Err()) {
		return ctx.Err()
	}

	return nil
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	return fromGobreaker(b.gb.State())
}

// Reset forces the breaker back to Closed and zeros its counters. Used
// by operators/tests; not part of the request hot path.
func (b *Breaker) Reset() {
	settings := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: 1,
		Timeout:     b.cfg.HalfOpenAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.mu.Lock()
			b.lastTransitionAt = time.Now()
			b.mu.Unlock()
		},
	}
	b.mu.Lock()
	b.gb = gobreaker.NewCircuitBreaker(settings)
	b.halfOpenInFlight.Store(false)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.stateGauge.Set(0)
	}
}

// Metrics exposes a snapshot of the breaker's state, counters, and
// last-transition timestamps for introspection.
func (b *Breaker) Metrics() Metrics {
	counts := b.gb.Counts()
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{
		Name:                b.name,
		State:               fromGobreaker(b.gb.State()),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalSuccesses:      uint64(counts.TotalSuccesses),
		TotalFailures:       uint64(counts.TotalFailures),
		LastOpenedAt:        b.lastOpenedAt,
		LastHalfOpenAt:      b.lastHalfOpenAt,
		LastTransitionAt:    b.lastTransitionAt,
		HalfOpenInProgress:  b.halfOpenInFlight.Load(),
	}
}
