package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockCompleter returns deterministic local replies for development and
// tests when no completion endpoint is configured.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (c *MockCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	return Response{Text: buildMockReply(req)}, nil
}

func buildMockReply(req Request) string {
	base := strings.TrimSpace(req.Input)
	if base == "" {
		return "I'm here to listen! 🤗"
	}
	if n := len(req.History); n > 0 {
		return fmt.Sprintf("I hear you: %s ✨ (we've shared %d messages so far)", base, n)
	}
	return fmt.Sprintf("I hear you: %s ✨", base)
}
