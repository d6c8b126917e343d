package capsules

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/records"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: baseTime}
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 100)
	return NewService(store, zerolog.Nop(), WithClock(clock.Now)), clock
}

func TestCreateStartsLocked(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), CreateRequest{
		Message:    "Dear future me",
		UnlockDate: baseTime.Add(30 * 24 * time.Hour),
		Tags:       []string{"hopes"},
	})
	require.NoError(t, err)
	assert.False(t, c.IsUnlocked)
	assert.Equal(t, "Dear future me", c.Title)
	assert.True(t, c.CreatedAt.Equal(baseTime))
	assert.Equal(t, []string{"hopes"}, c.Tags)
	assert.Empty(t, c.RecipientEmail)
}

func TestListAllIsSoonestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, days := range []int{10, 2, 5} {
		_, err := svc.Create(ctx, CreateRequest{Message: "m", UnlockDate: baseTime.Add(time.Duration(days) * 24 * time.Hour)})
		require.NoError(t, err)
	}

	items, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].UnlockDate.Before(items[i-1].UnlockDate), "unlock dates must be non-decreasing")
	}
	assert.Equal(t, int64(2), items[0].ID)
}

func TestPastUnlockDateDisplaysUnlockedDespiteStoredFlag(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateRequest{Message: "m", UnlockDate: baseTime.Add(time.Hour)})
	require.NoError(t, err)

	clock.t = baseTime.Add(2 * time.Hour)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsUnlocked)
	assert.True(t, got.UnlockedAt(clock.Now()))

	view := got.ViewAt(clock.Now())
	assert.True(t, view.Unlocked)
	assert.Empty(t, view.TimeUntilUnlock)
}

func TestMarkUnlockedRequiresPassedDate(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateRequest{Message: "m", UnlockDate: baseTime.Add(48 * time.Hour)})
	require.NoError(t, err)

	_, err = svc.MarkUnlocked(ctx, c.ID)
	assert.True(t, IsStillLocked(err))

	clock.t = baseTime.Add(49 * time.Hour)
	opened, err := svc.MarkUnlocked(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, opened.IsUnlocked)
}

func TestUpdateCannotSetStoredFlag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateRequest{Message: "m", UnlockDate: baseTime.Add(time.Hour)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, c.ID, map[string]any{"isUnlocked": true, "message": "edited", "createdAt": baseTime.Add(-time.Hour)})
	require.NoError(t, err)
	assert.False(t, updated.IsUnlocked)
	assert.Equal(t, "edited", updated.Message)
	assert.True(t, updated.CreatedAt.Equal(baseTime))
}

func TestValidateUnlockDate(t *testing.T) {
	assert.True(t, records.IsValidation(ValidateUnlockDate("", baseTime.Add(time.Hour), baseTime)))
	assert.True(t, records.IsValidation(ValidateUnlockDate("m", baseTime, baseTime)))
	assert.True(t, records.IsValidation(ValidateUnlockDate("m", time.Time{}, baseTime)))
	assert.NoError(t, ValidateUnlockDate("m", baseTime.Add(time.Second), baseTime))
}

func TestViewReportsTimeUntilUnlock(t *testing.T) {
	c := Capsule{UnlockDate: baseTime.Add(3*24*time.Hour + time.Hour)}
	v := c.ViewAt(baseTime)
	assert.False(t, v.Unlocked)
	assert.Equal(t, "3 days", v.TimeUntilUnlock)
	assert.Equal(t, int64(3*24*3600+3600), v.SecondsToUnlock)
}

func TestMissingCapsuleIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.MarkUnlocked(context.Background(), 5)
	assert.ErrorIs(t, err, records.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 5), records.ErrNotFound)
}

func TestListAllReadsEveryPage(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	store := records.NewStore(records.NewMemoryBackend(), zerolog.Nop(), nil, 2)
	svc := NewService(store, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 5; i >= 1; i-- {
		_, err := svc.Create(ctx, CreateRequest{Message: "later", UnlockDate: baseTime.Add(time.Duration(i) * 24 * time.Hour)})
		require.NoError(t, err)
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(5), all[0].ID, "soonest unlock was created last")
	assert.Equal(t, int64(1), all[4].ID)
}
