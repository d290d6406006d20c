// Package health implements the per-provider rolling-window health
// monitor: a bounded FIFO of recent outcomes used to flip an advisory
// healthy/unhealthy flag the router consults to skip providers.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finrelay/gateway/classify"
	"github.com/finrelay/gateway/provider"
)

const (
	defaultCap              = 100
	defaultRetention         = 5 * time.Minute
	unhealthyThreshold       = 3
)

// record is one outcome pushed onto a provider's rolling window.
type record struct {
	success  bool
	latency  time.Duration
	at       time.Time
}

// Status is a point-in-time snapshot returned by Monitor.Status.
type Status struct {
	Healthy             bool
	ConsecutiveFailures int
	LastSuccessAt        time.Time
	ErrorRate            float64
	AverageLatency       time.Duration
	WindowSize           int
	ErrorKinds           map[classify.Kind]int64
}

// state is the mutable per-provider record, guarded by Monitor.mu.
type state struct {
	window              []record
	head                int // index of the oldest entry
	consecutiveFailures int
	lastSuccessAt        time.Time
	healthy              bool
	errorKinds           map[classify.Kind]int64
}

func newState() *state {
	return &state{
		window:     make([]record, 0, defaultCap),
		healthy:    true,
		errorKinds: make(map[classify.Kind]int64),
	}
}

// Monitor tracks rolling health windows for every observed provider.
// Entries are created lazily on first observation and live for the
// process lifetime.
type Monitor struct {
	mu     sync.Mutex
	states map[provider.ID]*state
	logger *zap.Logger

	cap       int
	retention time.Duration
}

// NewMonitor creates an empty monitor. cap and retention default to 100
// entries / 5 minutes when zero.
func NewMonitor(logger *zap.Logger, cap int, retention time.Duration) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cap <= 0 {
		cap = defaultCap
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Monitor{
		states:    make(map[provider.ID]*state),
		logger:    logger,
		cap:       cap,
		retention: retention,
	}
}

func (m *Monitor) stateFor(id provider.ID) *state {
	s, ok := m.states[id]
	if !ok {
		s = newState()
		m.states[id] = s
	}
	return s
}

// RecordSuccess pushes a success outcome, zeros the consecutive-failure
// counter, flips isHealthy back to true if it had tripped, and stamps
// lastSuccessAt.
func (m *Monitor) RecordSuccess(id provider.ID, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stateFor(id)
	s.push(record{success: true, latency: elapsed, at: time.Now()}, m.cap)
	s.consecutiveFailures = 0
	wasUnhealthy := !s.healthy
	s.healthy = true
	s.lastSuccessAt = time.Now()

	if wasUnhealthy {
		m.logger.Info("provider recovered", zap.String("provider_id", string(id)))
	}
}

// RecordFailure pushes a failure outcome of the given kind, increments
// the consecutive-failure counter and the error-kind histogram, and
// flips isHealthy to false once the threshold is reached.
func (m *Monitor) RecordFailure(id provider.ID, kind classify.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stateFor(id)
	s.push(record{success: false, at: time.Now()}, m.cap)
	s.consecutiveFailures++
	s.errorKinds[kind]++

	if s.consecutiveFailures >= unhealthyThreshold && s.healthy {
		s.healthy = false
		m.logger.Warn("provider marked unhealthy",
			zap.String("provider_id", string(id)),
			zap.Int("consecutive_failures", s.consecutiveFailures),
			zap.String("last_error_kind", string(kind)))
	}
}

// Status prunes entries older than the retention horizon (or beyond the
// cap, though push already enforces the cap) and returns a snapshot of
// the surviving window.
func (m *Monitor) Status(id provider.ID) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[id]
	if !ok {
		return Status{Healthy: true, ErrorKinds: map[classify.Kind]int64{}}
	}

	s.prune(m.retention)

	var failures, successes int
	var latencySum time.Duration
	for _, r := range s.window {
		if r.success {
			successes++
			latencySum += r.latency
		} else {
			failures++
		}
	}

	total := failures + successes
	var errRate float64
	if total > 0 {
		errRate = float64(failures) / float64(total)
	}
	var avgLatency time.Duration
	if successes > 0 {
		avgLatency = latencySum / time.Duration(successes)
	}

	kinds := make(map[classify.Kind]int64, len(s.errorKinds))
	for k, v := range s.errorKinds {
		kinds[k] = v
	}

	return Status{
		Healthy:             s.healthy,
		ConsecutiveFailures: s.consecutiveFailures,
		LastSuccessAt:       s.lastSuccessAt,
		ErrorRate:           errRate,
		AverageLatency:      avgLatency,
		WindowSize:          total,
		ErrorKinds:          kinds,
	}
}

// IsHealthy is a convenience wrapper the router uses to decide whether
// to skip a provider. A healthy verdict is advisory and does not bypass
// the circuit breaker.
func (m *Monitor) IsHealthy(id provider.ID) bool {
	return m.Status(id).Healthy
}

// push appends r to the window, evicting the oldest entry once the
// window reaches cap. Implemented as an append-and-trim slice rather
// than a true ring buffer: at this cap (100) the occasional shift is
// cheap and keeps the code straightforward.
func (s *state) push(r record, cap int) {
	s.window = append(s.window, r)
	if len(s.window) > cap {
		s.window = s.window[len(s.window)-cap:]
	}
}

// prune drops entries older than retention, preserving order.
func (s *state) prune(retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	i := 0
	for i < len(s.window) && s.window[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.window = s.window[i:]
	}
}

// Prober is invoked by RunProbe for adapters that implement
// provider.HealthProber.
type Prober interface {
	HealthProbe(ctx context.Context) error
}

// RunProbe invokes prober.HealthProbe and records the outcome. A
// passing probe clears isHealthy to true but does not push onto the
// rolling window (an explicit probe isn't a request outcome); a failing
// probe records a window entry of kind ServiceError, the same as a
// normal request failure.
func (m *Monitor) RunProbe(ctx context.Context, id provider.ID, prober Prober) {
	err := prober.HealthProbe(ctx)
	if err == nil {
		m.mu.Lock()
		s := m.stateFor(id)
		s.healthy = true
		m.mu.Unlock()
		return
	}
	if classify.IsCancellation(err) {
		return
	}
	m.RecordFailure(id, classify.ServiceError)
}

// StartBackgroundProbes polls every registered prober at interval until
// ctx is cancelled. probers maps provider IDs to their optional prober;
// callers build this from whichever registered adapters implement
// provider.HealthProber.
func (m *Monitor) StartBackgroundProbes(ctx context.Context, interval time.Duration, probers map[provider.ID]Prober) {
	if interval <= 0 || len(probers) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id, prober := range probers {
				m.RunProbe(ctx, id, prober)
			}
		}
	}
}
