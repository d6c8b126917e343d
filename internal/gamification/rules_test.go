package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/momento-app/momento/internal/users"
)

func TestProgressFor(t *testing.T) {
	p := ProgressFor(1250, 2)
	assert.Equal(t, int64(1000), p.CurrentLevelXP)
	assert.Equal(t, int64(2000), p.NextLevelXP)
	assert.InDelta(t, 25.0, p.Percent, 0.001)
	assert.Equal(t, int64(750), p.RemainingXP)
}

func TestProgressForClampsAndDerivesLevel(t *testing.T) {
	p := ProgressFor(3100, 0)
	assert.Equal(t, int64(4), p.Level)
	assert.InDelta(t, 10.0, p.Percent, 0.001)

	stale := ProgressFor(5000, 2)
	assert.Equal(t, 100.0, stale.Percent)
}

func TestBadges(t *testing.T) {
	got := Badges(users.Profile{StreakCount: 7, Level: 4})
	unlocked := map[string]bool{}
	for _, b := range got {
		unlocked[b.Name] = b.Unlocked
	}
	assert.Len(t, got, 6)
	assert.True(t, unlocked["First Memory"])
	assert.True(t, unlocked["7 Day Streak"])
	assert.False(t, unlocked["Level 5"])
	assert.False(t, unlocked["Chat Master"])
}

func TestDailyPromptUsesPicker(t *testing.T) {
	prompts := DailyPrompts()
	assert.Len(t, prompts, 8)
	assert.Equal(t, prompts[3], DailyPrompt(func(n int) int { return 3 }))
	assert.Equal(t, prompts[0], DailyPrompt(func(n int) int { return n + 4 }))
}

func TestGreeting(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Good morning", Greeting(day.Add(11*time.Hour+59*time.Minute)))
	assert.Equal(t, "Good afternoon", Greeting(day.Add(12*time.Hour)))
	assert.Equal(t, "Good afternoon", Greeting(day.Add(16*time.Hour+59*time.Minute)))
	assert.Equal(t, "Good evening", Greeting(day.Add(17*time.Hour)))
}
