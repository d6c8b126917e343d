package capsules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/policy"
	"github.com/momento-app/momento/internal/records"
)

// isUnlocked is only written by MarkUnlocked.
var updatableFields = []string{"Name", "message", "unlockDate", "recipientEmail", "Tags", "userId"}

// CreateRequest carries the caller-supplied fields of a new capsule.
type CreateRequest struct {
	Message        string    `json:"message"`
	UnlockDate     time.Time `json:"unlockDate"`
	RecipientEmail string    `json:"recipientEmail"`
	Tags           []string  `json:"tags"`
	UserID         int64     `json:"userId"`
}

type Service struct {
	store         records.Repository
	log           zerolog.Logger
	now           func() time.Time
	defaultUserID int64
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDefaultUser(id int64) Option {
	return func(s *Service) { s.defaultUserID = id }
}

func NewService(store records.Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		log:           logger.With().Str("component", "capsules").Logger(),
		now:           time.Now,
		defaultUserID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock, exposed so callers resolve display state
// against the same time source.
func (s *Service) Now() time.Time { return s.now() }

// ListAll returns capsules ordered by unlock date, soonest first.
func (s *Service) ListAll(ctx context.Context) ([]Capsule, error) {
	recs, err := records.ListAll(ctx, s.store, records.CapsuleSchema, records.Query{})
	if err != nil {
		return nil, fmt.Errorf("list capsules: %w", err)
	}
	out := make([]Capsule, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	SortSoonestFirst(out)
	return out, nil
}

// SortSoonestFirst orders capsules by unlock date ascending, ties by id.
func SortSoonestFirst(items []Capsule) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UnlockDate.Equal(items[j].UnlockDate) {
			return items[i].UnlockDate.Before(items[j].UnlockDate)
		}
		return items[i].ID < items[j].ID
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Capsule, error) {
	rec, err := s.store.Get(ctx, records.CapsuleSchema, id)
	if err != nil {
		return Capsule{}, fmt.Errorf("get capsule %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

// Create stores a sealed capsule. The unlock date is not re-validated here;
// callers use ValidateUnlockDate.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Capsule, error) {
	userID := req.UserID
	if userID == 0 {
		userID = s.defaultUserID
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := map[string]any{
		"Name":       records.TitleFrom(req.Message, defaultTitle),
		"message":    req.Message,
		"unlockDate": req.UnlockDate,
		"isUnlocked": false,
		"createdAt":  s.now().UTC(),
		"Tags":       tags,
		"userId":     userID,
	}
	if req.RecipientEmail != "" {
		fields["recipientEmail"] = req.RecipientEmail
	}

	rec, err := s.store.Create(ctx, records.CapsuleSchema, fields)
	if err != nil {
		return Capsule{}, fmt.Errorf("create capsule: %w", err)
	}
	c := fromRecord(rec)
	evt := s.log.Debug().Int64("id", c.ID).Time("unlock_date", c.UnlockDate)
	if c.RecipientEmail != "" {
		recipient, _ := policy.RedactPII(c.RecipientEmail)
		evt = evt.Str("recipient", recipient)
	}
	evt.Msg("capsule sealed")
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, fields map[string]any) (Capsule, error) {
	rec, err := s.store.Update(ctx, records.CapsuleSchema, id, fields, updatableFields...)
	if err != nil {
		return Capsule{}, fmt.Errorf("update capsule %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.Delete(ctx, records.CapsuleSchema, id); err != nil {
		return fmt.Errorf("delete capsule %d: %w", id, err)
	}
	return nil
}

// MarkUnlocked sets the stored flag once the unlock date has passed.
// Already-unlocked capsules are returned unchanged.
func (s *Service) MarkUnlocked(ctx context.Context, id int64) (Capsule, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Capsule{}, err
	}
	if c.IsUnlocked {
		return c, nil
	}
	if !c.UnlockedAt(s.now()) {
		return Capsule{}, fmt.Errorf("unlock capsule %d: %w", id, ErrStillLocked)
	}
	rec, err := s.store.Update(ctx, records.CapsuleSchema, id, map[string]any{"isUnlocked": true}, "isUnlocked")
	if err != nil {
		return Capsule{}, fmt.Errorf("unlock capsule %d: %w", id, err)
	}
	c = fromRecord(rec)
	s.log.Info().Int64("id", id).Msg("capsule unlocked")
	return c, nil
}

// IsStillLocked reports whether err is ErrStillLocked.
func IsStillLocked(err error) bool { return errors.Is(err, ErrStillLocked) }
