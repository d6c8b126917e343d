package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHTTPStatusClass(t *testing.T) {
	cases := map[int]string{
		200: "ok",
		401: "auth",
		403: "auth",
		404: "not_found",
		422: "client",
		429: "rate_limited",
		502: "upstream",
	}
	for code, want := range cases {
		if got := HTTPStatusClass(code); got != want {
			t.Fatalf("HTTPStatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestNewBackOffStopsAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return errors.New("still failing")
	}, NewBackOff(context.Background(), 2, time.Millisecond, 2*time.Millisecond))
	if err == nil {
		t.Fatalf("Retry() error = nil, want failure")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestIsNetworkError(t *testing.T) {
	if IsNetworkError(nil) {
		t.Fatalf("nil should not be a network error")
	}
	if !IsNetworkError(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should count as network error")
	}
	if IsNetworkError(errors.New("bad request")) {
		t.Fatalf("plain error should not be a network error")
	}
}
