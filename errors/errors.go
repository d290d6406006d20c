// Package errors provides the gateway's structured error type and
// request-correlation IDs. A GatewayError carries a closed error Kind
// (see classify), a human-readable message, the originating request
// ID, and optional diagnostic details — shaped for the JSON-RPC error
// envelope at the protocol edge.
package errors

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/finrelay/gateway/classify"
)

// GatewayError is the error type every tool-call handler ultimately
// returns or propagates.
type GatewayError struct {
	Kind      classify.Kind          `json:"kind"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"requestId,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`

	err error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *GatewayError) Unwrap() error {
	return e.err
}

// Is matches GatewayErrors by Kind, ignoring message/details/request id.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a GatewayError of the given kind.
func New(kind classify.Kind, requestID, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, RequestID: requestID, err: cause}
}

// WithDetails attaches diagnostic details and returns the receiver for
// chaining.
func (e *GatewayError) WithDetails(details map[string]interface{}) *GatewayError {
	e.Details = details
	return e
}

// NewRequestID generates a new request-correlation ID.
func NewRequestID() string {
	return uuid.NewString()
}
