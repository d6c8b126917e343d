// Package chat runs the companion conversation: an append-only message log
// and one completion per user turn, with a fixed pool of replies used when
// the completion endpoint fails.
package chat

import (
	"time"

	"github.com/momento-app/momento/internal/records"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const defaultTitle = "Chat Message"

// Message is one persisted chat turn.
type Message struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	Title            string    `json:"title"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	ContextMemoryIDs []int64   `json:"contextMemoryIds"`
}

// TurnState tracks one send from request to reply.
type TurnState string

const (
	StateIdle          TurnState = "idle"
	StateSending       TurnState = "sending"
	StateAwaitingReply TurnState = "awaiting_reply"
	StateReplied       TurnState = "replied"
	StateFailed        TurnState = "failed"
)

// Exchange is the result of a turn. AssistantMessage is zero when the turn
// failed after the user message was stored.
type Exchange struct {
	UserMessage      Message   `json:"userMessage"`
	AssistantMessage Message   `json:"assistantMessage"`
	Fallback         bool      `json:"fallback"`
	State            TurnState `json:"state"`
}

func fromRecord(rec records.Record) Message {
	role := rec.Str("role")
	if role != RoleUser {
		role = RoleAssistant
	}
	return Message{
		ID:               rec.ID,
		UserID:           rec.Int("userId"),
		Title:            rec.Str("Name"),
		Role:             role,
		Content:          rec.Str("content"),
		Timestamp:        rec.Time("timestamp"),
		ContextMemoryIDs: rec.IntList("contextMemoryIds"),
	}
}
