package llm

import (
	"context"
	"errors"
	"fmt"
)

// FallbackCompleter tries a primary completer and falls back on error.
// Cancellation and deadline errors are returned as-is.
type FallbackCompleter struct {
	primary   Completer
	secondary Completer
}

func NewFallbackCompleter(primary, secondary Completer) *FallbackCompleter {
	return &FallbackCompleter{primary: primary, secondary: secondary}
}

func (c *FallbackCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	if c.primary == nil {
		if c.secondary != nil {
			return c.secondary.Complete(ctx, req)
		}
		return Response{}, fmt.Errorf("fallback completer misconfigured")
	}
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || c.secondary == nil {
		return Response{}, err
	}
	fallbackResp, fallbackErr := c.secondary.Complete(ctx, req)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary completer error: %w; fallback completer error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
