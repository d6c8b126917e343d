package gamification

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/records"
	"github.com/momento-app/momento/internal/users"
)

// statsOutage fails every profile write while leaving other kinds intact.
type statsOutage struct {
	*records.MemoryBackend
}

func (b statsOutage) UpdateRows(ctx context.Context, kind records.Kind, rows []records.Row) ([]records.Result, error) {
	if kind == records.KindUser {
		return nil, errors.New("user table unavailable")
	}
	return b.MemoryBackend.UpdateRows(ctx, kind, rows)
}

func TestRewardMemoryAddsXPAndStreak(t *testing.T) {
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 100)
	profiles := users.NewService(store, zerolog.Nop())
	ctx := context.Background()
	p, err := profiles.EnsureDefault(ctx, "Friend", "")
	require.NoError(t, err)
	_, err = profiles.UpdateStats(ctx, p.ID, users.StatsUpdate{XPPoints: ptr[int64](980)})
	require.NoError(t, err)

	r := NewRewarder(profiles, zerolog.Nop(), nil)
	got, err := r.RewardMemory(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1030), got.XPPoints)
	assert.Equal(t, int64(2), got.Level)
	assert.Equal(t, int64(1), got.StreakCount)
	assert.False(t, got.LastActive.IsZero())
}

func TestRewardFailureLeavesMemoryAndProfileIntact(t *testing.T) {
	store := records.NewStore(statsOutage{records.NewMemoryBackend()}, zerolog.Nop(), nil, 100)
	profiles := users.NewService(store, zerolog.Nop())
	memories := journal.NewService(store, zerolog.Nop())
	ctx := context.Background()

	p, err := profiles.EnsureDefault(ctx, "Friend", "")
	require.NoError(t, err)

	m, err := memories.Create(ctx, journal.CreateRequest{Content: "Saw a rainbow", Mood: journal.MoodExcited, UserID: p.ID})
	require.NoError(t, err)

	_, err = NewRewarder(profiles, zerolog.Nop(), nil).RewardMemory(ctx, p.ID)
	require.Error(t, err)

	stored, err := memories.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saw a rainbow", stored.Content)

	after, err := profiles.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.XPPoints, after.XPPoints)
	assert.Equal(t, p.StreakCount, after.StreakCount)
}

func TestRewardMissingProfile(t *testing.T) {
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 100)
	_, err := NewRewarder(users.NewService(store, zerolog.Nop()), zerolog.Nop(), nil).RewardMemory(context.Background(), 3)
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }
