// Package client is a typed client for the Momento HTTP API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/momento-app/momento/internal/capsules"
	"github.com/momento-app/momento/internal/chat"
	"github.com/momento-app/momento/internal/gamification"
	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/observability"
	"github.com/momento-app/momento/internal/records"
	"github.com/momento-app/momento/internal/users"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

// Memory is a memory as served by the API.
type Memory struct {
	journal.Memory
	MoodEmoji string `json:"moodEmoji"`
}

// MemoryCreated is the result of saving a memory.
type MemoryCreated struct {
	Memory Memory `json:"memory"`
	Reward struct {
		Applied bool           `json:"applied"`
		Profile *users.Profile `json:"profile,omitempty"`
	} `json:"reward"`
	Warning string `json:"warning,omitempty"`
}

// Progress is the profile with derived level progress.
type Progress struct {
	Profile  users.Profile         `json:"profile"`
	Progress gamification.Progress `json:"progress"`
	Badges   []gamification.Badge  `json:"badges"`
	Greeting string                `json:"greeting"`
}

type Client struct {
	http    *resty.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	apiErr := &APIError{}
	req := c.http.R().SetContext(ctx).SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) ListMemories(ctx context.Context, mood string) ([]Memory, error) {
	var out struct {
		Memories []Memory `json:"memories"`
	}
	path := "/v1/memories"
	if mood != "" {
		path += "?" + url.Values{"mood": {mood}}.Encode()
	}
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

func (c *Client) CreateMemory(ctx context.Context, req journal.CreateRequest) (MemoryCreated, error) {
	var out MemoryCreated
	err := c.do(ctx, resty.MethodPost, "/v1/memories", req, &out)
	return out, err
}

func (c *Client) DeleteMemory(ctx context.Context, id int64) error {
	return c.do(ctx, resty.MethodDelete, idPath("/v1/memories", id), nil, nil)
}

func (c *Client) ListCapsules(ctx context.Context) ([]capsules.View, error) {
	var out struct {
		Capsules []capsules.View `json:"capsules"`
	}
	if err := c.do(ctx, resty.MethodGet, "/v1/capsules", nil, &out); err != nil {
		return nil, err
	}
	return out.Capsules, nil
}

func (c *Client) CreateCapsule(ctx context.Context, message string, unlockDate time.Time, recipient string, tags []string) (capsules.View, error) {
	var out capsules.View
	err := c.do(ctx, resty.MethodPost, "/v1/capsules", map[string]any{
		"message":        message,
		"unlockDate":     unlockDate.UTC().Format(records.TimeLayout),
		"recipientEmail": recipient,
		"tags":           tags,
	}, &out)
	return out, err
}

func (c *Client) UnlockCapsule(ctx context.Context, id int64) (capsules.View, error) {
	var out capsules.View
	err := c.do(ctx, resty.MethodPost, idPath("/v1/capsules", id)+"/unlock", nil, &out)
	return out, err
}

func (c *Client) ChatHistory(ctx context.Context) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := c.do(ctx, resty.MethodGet, "/v1/chat/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) SendChat(ctx context.Context, text string) (chat.Exchange, error) {
	var out chat.Exchange
	err := c.do(ctx, resty.MethodPost, "/v1/chat/messages", map[string]string{"text": text}, &out)
	return out, err
}

func (c *Client) ClearChat(ctx context.Context) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, resty.MethodDelete, "/v1/chat/messages", nil, &out)
	return out.Deleted, err
}

func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var out Progress
	err := c.do(ctx, resty.MethodGet, "/v1/users/me/progress", nil, &out)
	return out, err
}

func (c *Client) DailyPrompt(ctx context.Context) (prompt, greeting string, err error) {
	var out struct {
		Prompt   string `json:"prompt"`
		Greeting string `json:"greeting"`
	}
	if err := c.do(ctx, resty.MethodGet, "/v1/prompts/daily", nil, &out); err != nil {
		return "", "", err
	}
	return out.Prompt, out.Greeting, nil
}

// PerfLatency fetches the server's rolling chat turn latencies.
func (c *Client) PerfLatency(ctx context.Context) (observability.TurnStageSnapshot, error) {
	var out observability.TurnStageSnapshot
	err := c.do(ctx, resty.MethodGet, "/v1/perf/latency", nil, &out)
	return out, err
}
