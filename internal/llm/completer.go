// Package llm adapts chat completion endpoints behind one Completer
// interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System           string  `json:"system,omitempty"`
	History          []Turn  `json:"history,omitempty"`
	Input            string  `json:"input"`
	Temperature      float32 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	PresencePenalty  float32 `json:"presence_penalty"`
	FrequencyPenalty float32 `json:"frequency_penalty"`
}

// Response is the completion text. Text may be empty.
type Response struct {
	Text string `json:"text"`
}

// Completer produces one assistant reply for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls completer construction.
type Config struct {
	Mode          string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	HTTPURL       string
	Timeout       time.Duration
}

// NewCompleter returns the completer for cfg.Mode: auto, openai, http or mock.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoCompleter(cfg), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for openai completion mode")
		}
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("COMPLETION_HTTP_URL is required for http completion mode")
		}
		return NewHTTPCompleter(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completion mode %q", cfg.Mode)
	}
}

func newAutoCompleter(cfg Config) Completer {
	var secondary Completer = NewMockCompleter()
	if url := strings.TrimSpace(cfg.HTTPURL); url != "" {
		secondary = NewHTTPCompleter(url, cfg.Timeout)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		primary := NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout)
		if _, isMock := secondary.(*MockCompleter); isMock {
			return primary
		}
		return NewFallbackCompleter(primary, secondary)
	}
	return secondary
}

// ModeName reports a short label for logs and metrics.
func ModeName(c Completer) string {
	switch v := c.(type) {
	case *OpenAICompleter:
		return "openai"
	case *HTTPCompleter:
		return "http"
	case *MockCompleter:
		return "mock"
	case *FallbackCompleter:
		return ModeName(v.primary) + "+" + ModeName(v.secondary)
	default:
		return "custom"
	}
}
