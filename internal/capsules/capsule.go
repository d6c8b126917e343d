// Package capsules manages time capsules: messages sealed until an unlock
// date.
package capsules

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/momento-app/momento/internal/records"
)

// ErrStillLocked is returned when unlocking a capsule before its date.
var ErrStillLocked = errors.New("capsule is still locked")

const defaultTitle = "Time Capsule"

// Capsule is a message to a future self. IsUnlocked is the stored flag;
// use UnlockedAt for display state.
type Capsule struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	UnlockDate     time.Time `json:"unlockDate"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	IsUnlocked     bool      `json:"isUnlocked"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UnlockedAt reports whether the capsule is open at now: either the stored
// flag is set or the unlock date has passed.
func (c Capsule) UnlockedAt(now time.Time) bool {
	return c.IsUnlocked || !now.Before(c.UnlockDate)
}

// TimeUntilUnlock is zero once the unlock date has passed.
func (c Capsule) TimeUntilUnlock(now time.Time) time.Duration {
	if d := c.UnlockDate.Sub(now); d > 0 {
		return d
	}
	return 0
}

// View is a capsule with its display state resolved at a point in time.
type View struct {
	Capsule
	Unlocked        bool   `json:"unlocked"`
	TimeUntilUnlock string `json:"timeUntilUnlock,omitempty"`
	SecondsToUnlock int64  `json:"secondsToUnlock"`
}

// ViewAt resolves display state at now.
func (c Capsule) ViewAt(now time.Time) View {
	d := c.TimeUntilUnlock(now)
	v := View{Capsule: c, Unlocked: c.UnlockedAt(now), SecondsToUnlock: int64(d / time.Second)}
	if d > 0 {
		v.TimeUntilUnlock = HumanizeDuration(d)
	}
	return v
}

// HumanizeDuration renders a coarse "in about" phrase such as "3 days".
func HumanizeDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month")
	default:
		return plural(int(d/(365*24*time.Hour)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// ValidateUnlockDate rejects an empty message or an unlock date that is not
// strictly after now.
func ValidateUnlockDate(message string, unlockDate, now time.Time) error {
	if strings.TrimSpace(message) == "" {
		return &records.ValidationError{Field: "Message", Message: "is required"}
	}
	if unlockDate.IsZero() {
		return &records.ValidationError{Field: "Unlock Date", Message: "is required"}
	}
	if !unlockDate.After(now) {
		return &records.ValidationError{Field: "Unlock Date", Message: "must be in the future"}
	}
	return nil
}

func fromRecord(rec records.Record) Capsule {
	return Capsule{
		ID:             rec.ID,
		UserID:         rec.Int("userId"),
		Title:          rec.Str("Name"),
		Message:        rec.Str("message"),
		UnlockDate:     rec.Time("unlockDate"),
		RecipientEmail: rec.Str("recipientEmail"),
		IsUnlocked:     rec.Bool("isUnlocked"),
		Tags:           rec.List("Tags"),
		CreatedAt:      rec.Time("createdAt"),
	}
}
