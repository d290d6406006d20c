package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finrelay/gateway/classify"
)

func TestGatewayError_ErrorString(t *testing.T) {
	e := New(classify.NetworkError, "req-1", "connect failed", errors.New("dial tcp: refused"))
	assert.Contains(t, e.Error(), "NetworkError")
	assert.Contains(t, e.Error(), "connect failed")
	assert.Contains(t, e.Error(), "dial tcp")
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	e := New(classify.ServiceError, "req-1", "upstream failed", cause)
	assert.ErrorIs(t, e, cause)
}

func TestGatewayError_IsMatchesByKindOnly(t *testing.T) {
	a := New(classify.RateLimitExceeded, "req-1", "throttled", nil)
	b := New(classify.RateLimitExceeded, "req-2", "different message", nil)
	c := New(classify.ServiceError, "req-1", "throttled", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestGatewayError_WithDetails(t *testing.T) {
	e := New(classify.DataError, "req-1", "bad json", nil).WithDetails(map[string]interface{}{"field": "price"})
	assert.Equal(t, "price", e.Details["field"])
}

func TestNewRequestID_Unique(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
