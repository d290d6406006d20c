package errors

import "github.com/finrelay/gateway/classify"

// NewNetworkError builds a GatewayError for a transport/connect failure.
func NewNetworkError(requestID, message string, cause error) *GatewayError {
	return New(classify.NetworkError, requestID, message, cause)
}

// NewTimeoutError builds a GatewayError for an elapsed deadline.
func NewTimeoutError(requestID, message string, cause error) *GatewayError {
	return New(classify.Timeout, requestID, message, cause)
}

// NewServiceError builds a GatewayError for a generic upstream failure.
func NewServiceError(requestID, message string, cause error) *GatewayError {
	return New(classify.ServiceError, requestID, message, cause)
}

// NewRateLimitError builds a GatewayError for a throttled upstream.
func NewRateLimitError(requestID, message string, cause error) *GatewayError {
	return New(classify.RateLimitExceeded, requestID, message, cause)
}

// NewDataError builds a GatewayError for a response-parse failure.
func NewDataError(requestID, message string, cause error) *GatewayError {
	return New(classify.DataError, requestID, message, cause)
}

// NewAuthenticationError builds a GatewayError for rejected credentials.
func NewAuthenticationError(requestID, message string, cause error) *GatewayError {
	return New(classify.AuthenticationError, requestID, message, cause)
}

// NewNotFoundError builds a GatewayError for a well-formed "not found"
// response.
func NewNotFoundError(requestID, message string, cause error) *GatewayError {
	return New(classify.NotFound, requestID, message, cause)
}

// NewInternalError builds a GatewayError for anything uncategorized,
// used at the protocol edge as the catch-all behind JSON-RPC code
// -32603.
func NewInternalError(requestID, message string, cause error) *GatewayError {
	return New(classify.Unknown, requestID, message, cause)
}
