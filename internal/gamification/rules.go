// Package gamification holds the XP, streak, badge and prompt rules layered
// on top of the profile.
package gamification

import (
	"time"

	"github.com/momento-app/momento/internal/users"
)

// Progress is XP progress within the current level.
type Progress struct {
	Level          int64   `json:"level"`
	XP             int64   `json:"xp"`
	CurrentLevelXP int64   `json:"currentLevelXp"`
	NextLevelXP    int64   `json:"nextLevelXp"`
	Percent        float64 `json:"percent"`
	RemainingXP    int64   `json:"remainingXp"`
}

// ProgressFor computes progress toward the next level. Percent is clamped
// to [0, 100].
func ProgressFor(xp, level int64) Progress {
	if level < 1 {
		level = users.LevelForXP(xp)
	}
	floor := (level - 1) * users.XPPerLevel
	next := level * users.XPPerLevel
	pct := float64(xp-floor) / float64(next-floor) * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return Progress{
		Level:          level,
		XP:             xp,
		CurrentLevelXP: floor,
		NextLevelXP:    next,
		Percent:        pct,
		RemainingXP:    next - xp,
	}
}

// Badge is an achievement shown on the profile.
type Badge struct {
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Unlocked bool   `json:"unlocked"`
}

// Badges evaluates the badge set for a profile.
func Badges(p users.Profile) []Badge {
	return []Badge{
		{Name: "First Memory", Emoji: "🌟", Unlocked: true},
		{Name: "7 Day Streak", Emoji: "🔥", Unlocked: p.StreakCount >= 7},
		{Name: "Chat Master", Emoji: "💬"},
		{Name: "Time Keeper", Emoji: "⏳"},
		{Name: "Memory Collector", Emoji: "📜"},
		{Name: "Level 5", Emoji: "🏆", Unlocked: p.Level >= 5},
	}
}

var dailyPrompts = []string{
	"What made you smile today? 😊",
	"Describe a moment that felt like magic ✨",
	"What are you grateful for right now? 🙏",
	"Share something that inspired you today 🌟",
	"What's a small victory you had today? 🎉",
	"Describe a person who brightened your day 💝",
	"What's something beautiful you noticed? 🌸",
	"Share a moment of peace you found today 🕊️",
}

// DailyPrompts returns a copy of the prompt pool.
func DailyPrompts() []string {
	return append([]string(nil), dailyPrompts...)
}

// DailyPrompt picks a prompt using pick, which returns an index in [0, n).
func DailyPrompt(pick func(n int) int) string {
	i := pick(len(dailyPrompts))
	if i < 0 || i >= len(dailyPrompts) {
		i = 0
	}
	return dailyPrompts[i]
}

// Greeting returns the time-of-day greeting for now's local hour.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
