package journal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/policy"
	"github.com/momento-app/momento/internal/records"
)

// updatableFields is the allow-list for Update. timestamp is create-only.
var updatableFields = []string{"Name", "content", "type", "mood", "reactions", "Tags", "userId"}

// CreateRequest carries the caller-supplied fields of a new memory.
type CreateRequest struct {
	Content   string   `json:"content"`
	Mood      string   `json:"mood"`
	Tags      []string `json:"tags"`
	Reactions []string `json:"reactions"`
	Type      string   `json:"type"`
	UserID    int64    `json:"userId"`
}

// Service is the memory CRUD layer over the record store.
type Service struct {
	store         records.Repository
	log           zerolog.Logger
	now           func() time.Time
	defaultUserID int64
}

type Option func(*Service)

// WithClock overrides the creation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultUser sets the owner of memories created without a user id.
func WithDefaultUser(id int64) Option {
	return func(s *Service) { s.defaultUserID = id }
}

func NewService(store records.Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		log:           logger.With().Str("component", "journal").Logger(),
		now:           time.Now,
		defaultUserID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAll returns every memory, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Memory, error) {
	return s.list(ctx, records.Query{})
}

// ListByMood returns memories with the given mood, newest first.
func (s *Service) ListByMood(ctx context.Context, mood string) ([]Memory, error) {
	return s.list(ctx, records.Query{
		Filters: []records.Filter{{Field: "mood", Value: NormalizeMood(mood)}},
	})
}

// RecentIDs returns the ids of the n most recently created memories. It
// backs the chat memory context.
func (s *Service) RecentIDs(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}
	recs, err := s.store.List(ctx, records.MemorySchema, records.Query{
		Fields:  []string{"Name"},
		OrderBy: []records.Order{{Field: records.IDField, Desc: true}},
		Limit:   n,
	})
	if err != nil {
		return nil, fmt.Errorf("recent memories: %w", err)
	}
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func (s *Service) list(ctx context.Context, q records.Query) ([]Memory, error) {
	recs, err := records.ListAll(ctx, s.store, records.MemorySchema, q)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	out := make([]Memory, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders memories by timestamp descending, ties by id
// descending.
func SortNewestFirst(items []Memory) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Memory, error) {
	rec, err := s.store.Get(ctx, records.MemorySchema, id)
	if err != nil {
		return Memory{}, fmt.Errorf("get memory %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

// Create stores a new memory stamped with the current time. Callers
// validate content with ValidateContent first.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Memory, error) {
	userID := req.UserID
	if userID == 0 {
		userID = s.defaultUserID
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = defaultType
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	reactions := req.Reactions
	if reactions == nil {
		reactions = []string{}
	}

	rec, err := s.store.Create(ctx, records.MemorySchema, map[string]any{
		"Name":      records.TitleFrom(req.Content, defaultTitle),
		"content":   req.Content,
		"type":      kind,
		"mood":      NormalizeMood(req.Mood),
		"timestamp": s.now().UTC(),
		"reactions": reactions,
		"Tags":      tags,
		"userId":    userID,
	})
	if err != nil {
		return Memory{}, fmt.Errorf("create memory: %w", err)
	}
	m := fromRecord(rec)
	s.log.Debug().Int64("id", m.ID).Str("mood", m.Mood).Int("tags", len(m.Tags)).Str("preview", policy.LogPreview(m.Content, 60)).Msg("memory created")
	return m, nil
}

// Update applies a partial update. Fields outside the allow-list, including
// timestamp, are ignored.
func (s *Service) Update(ctx context.Context, id int64, fields map[string]any) (Memory, error) {
	patch := make(map[string]any, len(fields))
	for k, v := range fields {
		patch[k] = v
	}
	if mood, ok := patch["mood"].(string); ok {
		patch["mood"] = NormalizeMood(mood)
	}
	rec, err := s.store.Update(ctx, records.MemorySchema, id, patch, updatableFields...)
	if err != nil {
		return Memory{}, fmt.Errorf("update memory %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.Delete(ctx, records.MemorySchema, id); err != nil {
		return fmt.Errorf("delete memory %d: %w", id, err)
	}
	return nil
}
