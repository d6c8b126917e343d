package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/llm"
	"github.com/momento-app/momento/internal/observability"
	"github.com/momento-app/momento/internal/policy"
	"github.com/momento-app/momento/internal/records"
)

// DefaultContextTurns is the number of prior turns sent with a request.
const DefaultContextTurns = 10

// maxClearRounds bounds ClearHistory when the store pages results.
const maxClearRounds = 1000

// StateFunc observes turn state transitions.
type StateFunc func(TurnState)

// MemoryContextFunc returns ids of memories relevant to a new user turn.
type MemoryContextFunc func(ctx context.Context, text string) ([]int64, error)

type Service struct {
	store         records.Repository
	completer     llm.Completer
	log           zerolog.Logger
	metrics       *observability.Metrics
	pick          func(n int) int
	now           func() time.Time
	userID        int64
	timeout       time.Duration
	contextTurns  int
	persona       string
	memoryContext MemoryContextFunc
}

type Option func(*Service)

// WithPicker sets the random source used for fallback replies. pick returns
// an index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithUserID(id int64) Option {
	return func(s *Service) { s.userID = id }
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithContextTurns(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= DefaultContextTurns {
			s.contextTurns = n
		}
	}
}

func WithPersona(persona string) Option {
	return func(s *Service) { s.persona = persona }
}

// WithMemoryContext attaches related memory ids to each user turn.
func WithMemoryContext(fn MemoryContextFunc) Option {
	return func(s *Service) { s.memoryContext = fn }
}

func NewService(store records.Repository, completer llm.Completer, logger zerolog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:        store,
		completer:    completer,
		log:          logger.With().Str("component", "chat").Logger(),
		metrics:      metrics,
		pick:         rand.IntN,
		now:          time.Now,
		userID:       1,
		timeout:      30 * time.Second,
		contextTurns: DefaultContextTurns,
		persona:      Persona,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListMessages returns the whole conversation, oldest first.
func (s *Service) ListMessages(ctx context.Context) ([]Message, error) {
	recs, err := records.ListAll(ctx, s.store, records.ChatMessageSchema, records.Query{})
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	sortOldestFirst(out)
	return out, nil
}

func sortOldestFirst(items []Message) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].ID < items[j].ID
	})
}

// SendMessageWithReply stores the user turn, asks for a completion and
// stores the reply. Completion failures are answered from the fallback
// pool; storage failures are returned.
func (s *Service) SendMessageWithReply(ctx context.Context, text string) (Exchange, error) {
	return s.Send(ctx, text, nil)
}

// Send is SendMessageWithReply with a state observer.
func (s *Service) Send(ctx context.Context, text string, onState StateFunc) (Exchange, error) {
	if onState == nil {
		onState = func(TurnState) {}
	}
	if strings.TrimSpace(text) == "" {
		return Exchange{State: StateIdle}, &records.ValidationError{Field: "Content", Message: "is required"}
	}

	turnStarted := time.Now()
	onState(StateSending)

	var memoryIDs []int64
	if s.memoryContext != nil {
		ids, err := s.memoryContext(ctx, text)
		if err != nil {
			s.log.Warn().Err(err).Msg("memory context lookup failed")
		}
		memoryIDs = ids
	}

	stageStarted := time.Now()
	userMsg, err := s.persist(ctx, RoleUser, text, memoryIDs)
	s.metrics.ObserveTurnStage(observability.StagePersistUser, time.Since(stageStarted))
	if err != nil {
		onState(StateFailed)
		return Exchange{State: StateFailed}, fmt.Errorf("store user message: %w", err)
	}

	stageStarted = time.Now()
	history := s.contextWindow(ctx, userMsg.ID)
	s.metrics.ObserveTurnStage(observability.StageContextReady, time.Since(stageStarted))

	onState(StateAwaitingReply)
	reply, fallback, latency := s.complete(ctx, text, history)

	stageStarted = time.Now()
	assistantMsg, err := s.persist(ctx, RoleAssistant, reply, nil)
	s.metrics.ObserveTurnStage(observability.StagePersistReply, time.Since(stageStarted))
	if err != nil {
		onState(StateFailed)
		return Exchange{UserMessage: userMsg, Fallback: fallback, State: StateFailed}, fmt.Errorf("store assistant message: %w", err)
	}

	source := "completion"
	if fallback {
		source = "fallback"
	}
	s.metrics.ObserveChatReply(source, latency)
	s.metrics.ObserveTurnStage(observability.StageTurnTotal, time.Since(turnStarted))
	onState(StateReplied)

	s.log.Debug().
		Int64("user_message_id", userMsg.ID).
		Int64("assistant_message_id", assistantMsg.ID).
		Str("source", source).
		Int("context_turns", len(history)).
		Str("input", policy.LogPreview(text, 80)).
		Dur("latency", time.Since(turnStarted)).
		Msg("chat turn replied")

	return Exchange{UserMessage: userMsg, AssistantMessage: assistantMsg, Fallback: fallback, State: StateReplied}, nil
}

// contextWindow returns up to contextTurns turns before excludeID, oldest
// first. A failed lookup yields an empty window.
func (s *Service) contextWindow(ctx context.Context, excludeID int64) []llm.Turn {
	recs, err := s.store.List(ctx, records.ChatMessageSchema, records.Query{
		OrderBy: []records.Order{{Field: records.IDField, Desc: true}},
		Limit:   s.contextTurns + 1,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("conversation history unavailable, replying without context")
		return nil
	}
	prior := make([]Message, 0, len(recs))
	for _, rec := range recs {
		if rec.ID != excludeID {
			prior = append(prior, fromRecord(rec))
		}
	}
	sortOldestFirst(prior)
	if len(prior) > s.contextTurns {
		prior = prior[len(prior)-s.contextTurns:]
	}
	turns := make([]llm.Turn, 0, len(prior))
	for _, m := range prior {
		role := llm.RoleAssistant
		if m.Role == RoleUser {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	return turns
}

func (s *Service) complete(ctx context.Context, text string, history []llm.Turn) (reply string, fallback bool, latency time.Duration) {
	cctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.completer.Complete(cctx, llm.Request{
		System:           s.persona,
		History:          history,
		Input:            text,
		Temperature:      Temperature,
		MaxTokens:        MaxTokens,
		PresencePenalty:  PresencePenalty,
		FrequencyPenalty: FrequencyPenalty,
	})
	latency = time.Since(started)
	s.metrics.ObserveTurnStage(observability.StageCompletion, latency)

	if err != nil {
		evt := s.log.Warn()
		if errors.Is(err, context.DeadlineExceeded) {
			evt = evt.Bool("timeout", true)
		}
		evt.Err(err).Msg("completion failed, using fallback reply")
		s.metrics.ObserveTurnIndicator(observability.IndicatorFallbackReply)
		return s.fallbackReply(), true, latency
	}
	if strings.TrimSpace(resp.Text) == "" {
		s.metrics.ObserveTurnIndicator(observability.IndicatorEmptyReply)
		return EmptyReply, false, latency
	}
	return resp.Text, false, latency
}

func (s *Service) fallbackReply() string {
	i := s.pick(len(fallbackReplies))
	if i < 0 || i >= len(fallbackReplies) {
		i = 0
	}
	return fallbackReplies[i]
}

func (s *Service) persist(ctx context.Context, role, content string, memoryIDs []int64) (Message, error) {
	if memoryIDs == nil {
		memoryIDs = []int64{}
	}
	rec, err := s.store.Create(ctx, records.ChatMessageSchema, map[string]any{
		"Name":             records.TitleFrom(content, defaultTitle),
		"content":          content,
		"role":             role,
		"timestamp":        s.now().UTC(),
		"contextMemoryIds": memoryIDs,
		"Tags":             []string{},
		"userId":           s.userID,
	})
	if err != nil {
		return Message{}, err
	}
	return fromRecord(rec), nil
}

// ClearHistory deletes every message and returns how many were removed.
// An empty history is a successful no-op.
func (s *Service) ClearHistory(ctx context.Context) (int, error) {
	total := 0
	for round := 0; round < maxClearRounds; round++ {
		recs, err := s.store.List(ctx, records.ChatMessageSchema, records.Query{Fields: []string{"Name"}})
		if err != nil {
			return total, fmt.Errorf("clear chat history: %w", err)
		}
		if len(recs) == 0 {
			break
		}
		ids := make([]int64, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
		if _, err := s.store.Delete(ctx, records.ChatMessageSchema, ids...); err != nil {
			return total, fmt.Errorf("clear chat history: %w", err)
		}
		total += len(ids)
	}
	s.log.Info().Int("deleted", total).Msg("chat history cleared")
	return total, nil
}
