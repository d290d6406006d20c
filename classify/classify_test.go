package classify

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
)

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != Unknown {
		t.Fatalf("want Unknown, got %v", got)
	}
}

func TestClassify_SentinelWrappers(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&NotFoundError{Message: "no such ticker"}, NotFound},
		{&RateLimitError{Message: "throttled"}, RateLimitExceeded},
		{&AuthError{Message: "bad credentials"}, AuthenticationError},
		{&ServiceErr{Message: "upstream 500"}, ServiceError},
		{&DataErr{Message: "bad json"}, DataError},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestClassify_WrappedSentinel(t *testing.T) {
	err := errors.Join(errors.New("context"), &NotFoundError{Message: "missing"})
	if got := Classify(err); got != NotFound {
		t.Fatalf("want NotFound through errors.Join, got %v", got)
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != Timeout {
		t.Fatalf("want Timeout, got %v", got)
	}
}

func TestClassify_NetError(t *testing.T) {
	err := &net.DNSError{Err: "no such host", IsTimeout: true}
	if got := Classify(err); got != Timeout {
		t.Fatalf("want Timeout for net.Error with Timeout()==true, got %v", got)
	}

	err2 := &net.DNSError{Err: "no such host", IsTimeout: false}
	if got := Classify(err2); got != NetworkError {
		t.Fatalf("want NetworkError, got %v", got)
	}
}

func TestClassify_URLError(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "https://example.com", Err: errors.New("connection refused")}
	if got := Classify(err); got != NetworkError {
		t.Fatalf("want NetworkError, got %v", got)
	}
}

func TestClassify_Unknown(t *testing.T) {
	if got := Classify(errors.New("something odd")); got != Unknown {
		t.Fatalf("want Unknown, got %v", got)
	}
}

func TestIsCancellation(t *testing.T) {
	if !IsCancellation(context.Canceled) {
		t.Fatal("want true for context.Canceled")
	}
	if IsCancellation(context.DeadlineExceeded) {
		t.Fatal("want false for context.DeadlineExceeded")
	}
	if IsCancellation(nil) {
		t.Fatal("want false for nil")
	}
}
