package users

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/records"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 100)
	return NewService(store, zerolog.Nop())
}

func ptr[T any](v T) *T { return &v }

func TestLevelForXP(t *testing.T) {
	cases := map[int64]int64{0: 1, 999: 1, 1000: 2, 2500: 3, -5: 1}
	for xp, want := range cases {
		assert.Equal(t, want, LevelForXP(xp), "xp=%d", xp)
	}
}

func TestGetCurrentWithoutProfile(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetCurrent(context.Background())
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestEnsureDefaultSeedsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureDefault(ctx, "Friend", "friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Level)
	assert.Equal(t, "free", first.SubscriptionStatus)

	again, err := svc.EnsureDefault(ctx, "Other", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Friend", again.Name)
}

func TestUpdateStatsDerivesLevel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, err := svc.EnsureDefault(ctx, "Friend", "")
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateStats(ctx, p.ID, StatsUpdate{XPPoints: ptr[int64](2500), StreakCount: ptr[int64](4), LastActive: &now})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), updated.XPPoints)
	assert.Equal(t, int64(3), updated.Level)
	assert.Equal(t, int64(4), updated.StreakCount)
	assert.True(t, updated.LastActive.Equal(now))

	updated, err = svc.UpdateStats(ctx, p.ID, StatsUpdate{StreakCount: ptr[int64](5)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Level, "level untouched without xp")
}

func TestUpdateStatsRejectsNegative(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.EnsureDefault(context.Background(), "Friend", "")
	require.NoError(t, err)

	_, err = svc.UpdateStats(context.Background(), p.ID, StatsUpdate{XPPoints: ptr[int64](-1)})
	assert.True(t, records.IsValidation(err))
}

func TestUpdateProfileIgnoresStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, err := svc.EnsureDefault(ctx, "Friend", "")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, p.ID, map[string]any{
		"name":     "Ana",
		"badges":   []string{"First Memory"},
		"xpPoints": 99999,
		"level":    42,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, []string{"First Memory"}, updated.Badges)
	assert.Equal(t, int64(0), updated.XPPoints)
	assert.Equal(t, int64(1), updated.Level)
}

func TestUpdateMissingUserIsNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UpdateStats(context.Background(), 7, StatsUpdate{StreakCount: ptr[int64](1)})
	assert.ErrorIs(t, err, records.ErrNotFound)
}
