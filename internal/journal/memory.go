// Package journal manages memories: short journal entries tagged with a
// mood.
package journal

import (
	"strings"
	"time"

	"github.com/momento-app/momento/internal/records"
)

// Moods a memory can carry. Unknown moods are stored as MoodDefault.
const (
	MoodHappy   = "happy"
	MoodExcited = "excited"
	MoodCalm    = "calm"
	MoodLove    = "love"
	MoodSad     = "sad"
	MoodDefault = "default"
)

var moodEmoji = map[string]string{
	MoodHappy:   "😊",
	MoodExcited: "🎉",
	MoodCalm:    "😌",
	MoodLove:    "❤️",
	MoodSad:     "😢",
	MoodDefault: "📝",
}

const (
	defaultTitle = "Memory"
	defaultType  = "text"
)

// Memory is a journal entry.
type Memory struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Mood      string    `json:"mood"`
	Tags      []string  `json:"tags"`
	Reactions []string  `json:"reactions"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeMood maps unknown or empty moods to MoodDefault.
func NormalizeMood(mood string) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if _, ok := moodEmoji[mood]; ok {
		return mood
	}
	return MoodDefault
}

// MoodEmoji returns the display emoji for a mood.
func MoodEmoji(mood string) string {
	return moodEmoji[NormalizeMood(mood)]
}

// ValidateContent rejects blank memory content.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &records.ValidationError{Field: "Content", Message: "is required"}
	}
	return nil
}

func fromRecord(rec records.Record) Memory {
	return Memory{
		ID:        rec.ID,
		UserID:    rec.Int("userId"),
		Title:     rec.Str("Name"),
		Content:   rec.Str("content"),
		Type:      rec.Str("type"),
		Mood:      NormalizeMood(rec.Str("mood")),
		Tags:      rec.List("Tags"),
		Reactions: rec.List("reactions"),
		Timestamp: rec.Time("timestamp"),
	}
}
