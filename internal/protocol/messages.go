// Package protocol defines the JSON envelopes exchanged on the chat
// WebSocket.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientChat     MessageType = "client_chat"
	TypeClientClear    MessageType = "client_clear"
	TypeTurnState      MessageType = "turn_state"
	TypeChatMessage    MessageType = "chat_message"
	TypeHistoryCleared MessageType = "history_cleared"
	TypeErrorEvent     MessageType = "error_event"
)

// Input sources for client_chat. Voice input arrives already transcribed.
const (
	SourceText  = "text"
	SourceVoice = "voice"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientChat struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Text      string      `json:"text"`
	Source    string      `json:"source,omitempty"`
}

type ClientClear struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
}

type TurnState struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	State     string      `json:"state"`
}

// ChatMessage carries one persisted turn. Fallback is set on assistant
// turns answered from the canned pool.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	ID        int64       `json:"id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
	Fallback  bool        `json:"fallback,omitempty"`
}

type HistoryCleared struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Deleted   int         `json:"deleted"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientChat:
		var msg ClientChat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid client_chat: text is required")
		}
		switch msg.Source {
		case "":
			msg.Source = SourceText
		case SourceText, SourceVoice:
		default:
			return nil, fmt.Errorf("invalid client_chat: unknown source %q", msg.Source)
		}
		return msg, nil
	case TypeClientClear:
		var msg ClientClear
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
