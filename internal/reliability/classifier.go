package reliability

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// HTTPStatusClass buckets an upstream status code into a coarse failure class
// used for log fields and metric labels.
func HTTPStatusClass(code int) string {
	switch {
	case code == 401 || code == 403:
		return "auth"
	case code == 429:
		return "rate_limited"
	case code == 404:
		return "not_found"
	case code >= 500:
		return "upstream"
	case code >= 400:
		return "client"
	default:
		return "ok"
	}
}

// IsNetworkError reports transport-level failures (dial, reset, timeout).
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// NewBackOff returns a capped exponential backoff bound to ctx that gives up
// after maxRetries additional attempts.
func NewBackOff(ctx context.Context, maxRetries int, base, cap time.Duration) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.MaxInterval = cap
	exp.MaxElapsedTime = 0
	exp.RandomizationFactor = 0.2
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)
}
