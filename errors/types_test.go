package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finrelay/gateway/classify"
)

func TestConstructors_SetExpectedKind(t *testing.T) {
	cases := []struct {
		build func() *GatewayError
		want  classify.Kind
	}{
		{func() *GatewayError { return NewNetworkError("r", "m", nil) }, classify.NetworkError},
		{func() *GatewayError { return NewTimeoutError("r", "m", nil) }, classify.Timeout},
		{func() *GatewayError { return NewServiceError("r", "m", nil) }, classify.ServiceError},
		{func() *GatewayError { return NewRateLimitError("r", "m", nil) }, classify.RateLimitExceeded},
		{func() *GatewayError { return NewDataError("r", "m", nil) }, classify.DataError},
		{func() *GatewayError { return NewAuthenticationError("r", "m", nil) }, classify.AuthenticationError},
		{func() *GatewayError { return NewNotFoundError("r", "m", nil) }, classify.NotFound},
		{func() *GatewayError { return NewInternalError("r", "m", nil) }, classify.Unknown},
	}
	for _, c := range cases {
		got := c.build()
		assert.Equal(t, c.want, got.Kind)
		assert.Equal(t, "r", got.RequestID)
	}
}
