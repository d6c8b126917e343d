package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/llm"
	"github.com/momento-app/momento/internal/records"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type stubCompleter struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []llm.Request
}

func (c *stubCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if c.err != nil {
		return llm.Response{}, c.err
	}
	return llm.Response{Text: c.text}, nil
}

func (c *stubCompleter) last(t *testing.T) llm.Request {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.calls)
	return c.calls[len(c.calls)-1]
}

func newTestService(t *testing.T, store records.Repository, completer llm.Completer, opts ...Option) *Service {
	t.Helper()
	clock := &stepClock{t: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clock.Now), WithPicker(func(int) int { return 2 })}
	return NewService(store, completer, zerolog.Nop(), nil, append(base, opts...)...)
}

func newMemoryStore() *records.Store {
	return records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 100)
}

func TestSendPersistsBothTurns(t *testing.T) {
	completer := &stubCompleter{text: "That sounds lovely!"}
	svc := newTestService(t, newMemoryStore(), completer)
	ctx := context.Background()

	ex, err := svc.SendMessageWithReply(ctx, "I baked bread today")
	require.NoError(t, err)
	assert.Equal(t, StateReplied, ex.State)
	assert.False(t, ex.Fallback)
	assert.Equal(t, RoleUser, ex.UserMessage.Role)
	assert.Equal(t, "I baked bread today", ex.UserMessage.Content)
	assert.Equal(t, RoleAssistant, ex.AssistantMessage.Role)
	assert.Equal(t, "That sounds lovely!", ex.AssistantMessage.Content)

	msgs, err := svc.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, ex.UserMessage.ID, msgs[0].ID)
	assert.Equal(t, ex.AssistantMessage.ID, msgs[1].ID)

	req := completer.last(t)
	assert.Equal(t, Persona, req.System)
	assert.Equal(t, "I baked bread today", req.Input)
	assert.Empty(t, req.History)
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.001)
}

func TestSendFallsBackWhenCompletionFails(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream exploded")}
	svc := newTestService(t, newMemoryStore(), completer)
	ctx := context.Background()

	ex, err := svc.SendMessageWithReply(ctx, "Rough day")
	require.NoError(t, err)
	assert.True(t, ex.Fallback)
	assert.Equal(t, StateReplied, ex.State)
	assert.Equal(t, FallbackReplies()[2], ex.AssistantMessage.Content)
	assert.Contains(t, FallbackReplies(), ex.AssistantMessage.Content)

	msgs, err := svc.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Rough day", msgs[0].Content)
	assert.Equal(t, ex.AssistantMessage.Content, msgs[1].Content)
}

func TestSendUsesDefaultForEmptyCompletion(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &stubCompleter{text: "   "})

	ex, err := svc.SendMessageWithReply(context.Background(), "hello?")
	require.NoError(t, err)
	assert.False(t, ex.Fallback)
	assert.Equal(t, EmptyReply, ex.AssistantMessage.Content)
}

func TestSendRejectsBlankText(t *testing.T) {
	store := newMemoryStore()
	completer := &stubCompleter{text: "unused"}
	svc := newTestService(t, store, completer)

	ex, err := svc.SendMessageWithReply(context.Background(), "  \n ")
	require.Error(t, err)
	assert.True(t, records.IsValidation(err))
	assert.Equal(t, StateIdle, ex.State)
	assert.Empty(t, completer.calls)

	msgs, err := svc.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestContextWindowHoldsLastTurnsOldestFirst(t *testing.T) {
	completer := &stubCompleter{text: "ok"}
	svc := newTestService(t, newMemoryStore(), completer)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		_, err := svc.SendMessageWithReply(ctx, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}
	_, err := svc.SendMessageWithReply(ctx, "latest")
	require.NoError(t, err)

	req := completer.last(t)
	require.Len(t, req.History, DefaultContextTurns)
	// 12 prior messages exist; the window keeps the newest 10.
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Content: "turn 2"}, req.History[0])
	assert.Equal(t, llm.Turn{Role: llm.RoleAssistant, Content: "ok"}, req.History[1])
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Content: "turn 6"}, req.History[8])
	assert.Equal(t, llm.Turn{Role: llm.RoleAssistant, Content: "ok"}, req.History[9])
	for _, turn := range req.History {
		assert.NotEqual(t, "latest", turn.Content)
	}
	assert.Equal(t, "latest", req.Input)
}

func TestContextWindowRespectsOption(t *testing.T) {
	completer := &stubCompleter{text: "ok"}
	svc := newTestService(t, newMemoryStore(), completer, WithContextTurns(3))
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.SendMessageWithReply(ctx, text)
		require.NoError(t, err)
	}

	req := completer.last(t)
	require.Len(t, req.History, 3)
	assert.Equal(t, "ok", req.History[0].Content)
	assert.Equal(t, "b", req.History[1].Content)
	assert.Equal(t, "ok", req.History[2].Content)
}

func TestSendReportsStateTransitions(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &stubCompleter{text: "yay"})

	var states []TurnState
	_, err := svc.Send(context.Background(), "ping", func(s TurnState) { states = append(states, s) })
	require.NoError(t, err)
	assert.Equal(t, []TurnState{StateSending, StateAwaitingReply, StateReplied}, states)
}

type failingCreates struct {
	records.Repository
	failRole string
}

func (f failingCreates) Create(ctx context.Context, schema *records.Schema, fields map[string]any) (records.Record, error) {
	if fields["role"] == f.failRole {
		return records.Record{}, errors.New("store unavailable")
	}
	return f.Repository.Create(ctx, schema, fields)
}

func TestSendFailsWhenUserTurnCannotBeStored(t *testing.T) {
	completer := &stubCompleter{text: "unused"}
	svc := newTestService(t, failingCreates{Repository: newMemoryStore(), failRole: RoleUser}, completer)

	var states []TurnState
	ex, err := svc.Send(context.Background(), "hello", func(s TurnState) { states = append(states, s) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store user message")
	assert.Equal(t, StateFailed, ex.State)
	assert.Equal(t, []TurnState{StateSending, StateFailed}, states)
	assert.Empty(t, completer.calls)
}

func TestSendFailsWhenReplyCannotBeStored(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, failingCreates{Repository: store, failRole: RoleAssistant}, &stubCompleter{text: "hi"})

	ex, err := svc.SendMessageWithReply(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, StateFailed, ex.State)
	assert.Equal(t, "hello", ex.UserMessage.Content)

	msgs, err := svc.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
}

func TestSendAttachesMemoryContext(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &stubCompleter{text: "ok"},
		WithMemoryContext(func(context.Context, string) ([]int64, error) { return []int64{4, 7}, nil }))

	ex, err := svc.SendMessageWithReply(context.Background(), "remember the beach?")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, ex.UserMessage.ContextMemoryIDs)
	assert.Equal(t, []int64{}, ex.AssistantMessage.ContextMemoryIDs)
}

func TestClearHistory(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &stubCompleter{text: "ok"})
	ctx := context.Background()

	n, err := svc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, text := range []string{"one", "two"} {
		_, err := svc.SendMessageWithReply(ctx, text)
		require.NoError(t, err)
	}

	n, err = svc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	msgs, err := svc.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClearHistoryPagesThroughStore(t *testing.T) {
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 3)
	svc := newTestService(t, store, &stubCompleter{text: "ok"})
	ctx := context.Background()

	var last Exchange
	for _, text := range []string{"a", "b", "c", "d"} {
		ex, err := svc.SendMessageWithReply(ctx, text)
		require.NoError(t, err)
		last = ex
	}

	msgs, err := svc.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 8)
	assert.Equal(t, last.AssistantMessage.ID, msgs[7].ID)
	assert.Equal(t, "a", msgs[0].Content)

	n, err := svc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
