package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/observability"
	"github.com/momento-app/momento/internal/users"
)

// Reward amounts for saving a memory.
const (
	XPPerMemory     = 50
	StreakPerMemory = 1
)

// ProfileStore is the slice of the user service the rewarder needs.
type ProfileStore interface {
	Get(ctx context.Context, id int64) (users.Profile, error)
	UpdateStats(ctx context.Context, userID int64, u users.StatsUpdate) (users.Profile, error)
}

// Rewarder applies the memory reward rule. It never touches the memory
// itself, so a failed reward leaves the saved memory in place.
type Rewarder struct {
	profiles ProfileStore
	log      zerolog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewRewarder(profiles ProfileStore, logger zerolog.Logger, metrics *observability.Metrics) *Rewarder {
	return &Rewarder{
		profiles: profiles,
		log:      logger.With().Str("component", "gamification").Logger(),
		metrics:  metrics,
		now:      time.Now,
	}
}

// RewardMemory reads the profile and writes xp+50 and streak+1 in one
// stats update. The returned profile reflects the new stats.
func (r *Rewarder) RewardMemory(ctx context.Context, userID int64) (users.Profile, error) {
	p, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.metrics.ObserveReward("error")
		return users.Profile{}, fmt.Errorf("reward memory: %w", err)
	}

	xp := p.XPPoints + XPPerMemory
	streak := p.StreakCount + StreakPerMemory
	active := r.now().UTC()
	updated, err := r.profiles.UpdateStats(ctx, userID, users.StatsUpdate{
		XPPoints:    &xp,
		StreakCount: &streak,
		LastActive:  &active,
	})
	if err != nil {
		r.metrics.ObserveReward("error")
		return users.Profile{}, fmt.Errorf("reward memory: %w", err)
	}

	r.metrics.ObserveReward("applied")
	evt := r.log.Info().Int64("user_id", userID).Int64("xp", updated.XPPoints).Int64("streak", updated.StreakCount)
	if updated.Level > p.Level {
		evt = evt.Int64("level_up", updated.Level)
	}
	evt.Msg("memory reward applied")
	return updated, nil
}
