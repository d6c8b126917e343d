// Package users reads and updates the single active profile and its
// gamified stats.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/records"
)

// XPPerLevel is the XP span of one level.
const XPPerLevel = 1000

// ErrNoProfile is returned when no profile exists yet. It wraps
// records.ErrNotFound.
var ErrNoProfile = fmt.Errorf("no user profile: %w", records.ErrNotFound)

var (
	statsFields   = []string{"xpPoints", "level", "streakCount", "dailyChatCount", "lastActive"}
	profileFields = []string{"Name", "email", "badges", "subscriptionStatus"}
)

// Profile is the user's identity plus gamification stats.
type Profile struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	StreakCount        int64     `json:"streakCount"`
	XPPoints           int64     `json:"xpPoints"`
	Level              int64     `json:"level"`
	Badges             []string  `json:"badges"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	DailyChatCount     int64     `json:"dailyChatCount"`
	LastActive         time.Time `json:"lastActive,omitzero"`
}

// StatsUpdate carries the stats to change; nil fields are left alone.
type StatsUpdate struct {
	XPPoints       *int64     `json:"xpPoints,omitempty"`
	StreakCount    *int64     `json:"streakCount,omitempty"`
	DailyChatCount *int64     `json:"dailyChatCount,omitempty"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u StatsUpdate) Empty() bool {
	return u.XPPoints == nil && u.StreakCount == nil && u.DailyChatCount == nil && u.LastActive == nil
}

// LevelForXP is floor(xp/1000)+1.
func LevelForXP(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

type Service struct {
	store records.Repository
	log   zerolog.Logger
}

func NewService(store records.Repository, logger zerolog.Logger) *Service {
	return &Service{store: store, log: logger.With().Str("component", "users").Logger()}
}

// GetCurrent returns the active profile: the one with the lowest id.
func (s *Service) GetCurrent(ctx context.Context) (Profile, error) {
	recs, err := s.store.List(ctx, records.UserSchema, records.Query{Limit: 1, OrderBy: []records.Order{{Field: records.IDField}}})
	if err != nil {
		return Profile{}, fmt.Errorf("get current user: %w", err)
	}
	if len(recs) == 0 {
		return Profile{}, ErrNoProfile
	}
	return fromRecord(recs[0]), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Profile, error) {
	rec, err := s.store.Get(ctx, records.UserSchema, id)
	if err != nil {
		return Profile{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

// UpdateStats writes the given stats. When XP changes, level is derived and
// written in the same update.
func (s *Service) UpdateStats(ctx context.Context, userID int64, u StatsUpdate) (Profile, error) {
	fields := make(map[string]any, 5)
	for name, v := range map[string]*int64{
		"xpPoints":       u.XPPoints,
		"streakCount":    u.StreakCount,
		"dailyChatCount": u.DailyChatCount,
	} {
		if v == nil {
			continue
		}
		if *v < 0 {
			f, _ := records.UserSchema.Lookup(name)
			return Profile{}, &records.ValidationError{Field: f.Label, Message: "must not be negative"}
		}
		fields[name] = *v
	}
	if u.XPPoints != nil {
		fields["level"] = LevelForXP(*u.XPPoints)
	}
	if u.LastActive != nil {
		fields["lastActive"] = u.LastActive.UTC()
	}

	rec, err := s.store.Update(ctx, records.UserSchema, userID, fields, statsFields...)
	if err != nil {
		return Profile{}, fmt.Errorf("update stats for user %d: %w", userID, err)
	}
	p := fromRecord(rec)
	s.log.Debug().Int64("user_id", userID).Int64("xp", p.XPPoints).Int64("level", p.Level).Int64("streak", p.StreakCount).Msg("stats updated")
	return p, nil
}

// UpdateProfile writes identity fields only; stats and level are ignored.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, fields map[string]any) (Profile, error) {
	rec, err := s.store.Update(ctx, records.UserSchema, userID, fields, profileFields...)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile for user %d: %w", userID, err)
	}
	return fromRecord(rec), nil
}

// EnsureDefault creates a starter profile when none exists and returns the
// current profile.
func (s *Service) EnsureDefault(ctx context.Context, name, email string) (Profile, error) {
	p, err := s.GetCurrent(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNoProfile) {
		return Profile{}, err
	}

	rec, err := s.store.Create(ctx, records.UserSchema, map[string]any{
		"Name":               name,
		"email":              email,
		"streakCount":        0,
		"xpPoints":           0,
		"level":              1,
		"badges":             []string{},
		"subscriptionStatus": "free",
		"dailyChatCount":     0,
	})
	if err != nil {
		return Profile{}, fmt.Errorf("seed default user: %w", err)
	}
	s.log.Info().Int64("user_id", rec.ID).Msg("seeded default profile")
	return fromRecord(rec), nil
}

func fromRecord(rec records.Record) Profile {
	p := Profile{
		ID:                 rec.ID,
		Name:               rec.Str("Name"),
		Email:              rec.Str("email"),
		StreakCount:        rec.Int("streakCount"),
		XPPoints:           rec.Int("xpPoints"),
		Level:              rec.Int("level"),
		Badges:             rec.List("badges"),
		SubscriptionStatus: rec.Str("subscriptionStatus"),
		DailyChatCount:     rec.Int("dailyChatCount"),
		LastActive:         rec.Time("lastActive"),
	}
	if p.Level < 1 {
		p.Level = LevelForXP(p.XPPoints)
	}
	return p
}
