package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 2, HalfOpenAfter: time.Minute}, nil, nil)

	failing := errors.New("boom")
	for i := 0; i < 2; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error { return failing })
		assert.ErrorIs(t, err, failing)
	}

	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 2, HalfOpenAfter: time.Minute}, nil, nil)

	failing := errors.New("boom")
	_ = b.Execute(context.Background(), func(ctx context.Context) error { return failing })
	_ = b.Execute(context.Background(), func(ctx context.Context) error { return nil })

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Metrics().ConsecutiveFailures)
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 1, HalfOpenAfter: 10 * time.Millisecond}, nil, nil)

	failing := errors.New("boom")
	_ = b.Execute(context.Background(), func(ctx context.Context) error { return failing })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancellationNeverCountsAsFailure(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 1, HalfOpenAfter: time.Minute}, nil, nil)

	err := b.Execute(context.Background(), func(ctx context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.Metrics().HalfOpenInProgress)
}

func TestBreaker_CallerCancelledBeforeCall(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 1, HalfOpenAfter: time.Minute}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBreaker_DisabledIsPassthrough(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 1, Disabled: true}, nil, nil)

	failing := errors.New("boom")
	err := b.Execute(context.Background(), func(ctx context.Context) error { return failing })
	assert.ErrorIs(t, err, failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("alpha", Config{FailureThreshold: 1, HalfOpenAfter: time.Minute}, nil, nil)

	_ = b.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Metrics().ConsecutiveFailures)
}
