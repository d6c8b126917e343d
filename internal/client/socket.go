package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/momento-app/momento/internal/protocol"
)

// ChatSocket is a live chat connection. It is not safe for concurrent use.
type ChatSocket struct {
	conn *websocket.Conn
}

// DialChat opens the chat websocket.
func (c *Client) DialChat(ctx context.Context) (*ChatSocket, error) {
	wsURL := c.baseURL + "/v1/chat/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat socket: %w", err)
	}
	return &ChatSocket{conn: conn}, nil
}

func (s *ChatSocket) Close() error { return s.conn.Close() }

// Turn is the pair of messages the server confirmed for one send.
type Turn struct {
	User  protocol.ChatMessage
	Reply protocol.ChatMessage
}

// Send runs one turn and waits for the assistant reply. A deadline on ctx
// bounds the wait. onState, when set, sees each turn state the server
// reports.
func (s *ChatSocket) Send(ctx context.Context, text string, onState func(state string)) (Turn, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
		defer s.conn.SetReadDeadline(time.Time{})
	}
	requestID := uuid.NewString()
	if err := s.conn.WriteJSON(protocol.ClientChat{
		Type:      protocol.TypeClientChat,
		RequestID: requestID,
		Text:      text,
		Source:    protocol.SourceText,
	}); err != nil {
		return Turn{}, fmt.Errorf("send chat: %w", err)
	}

	var turn Turn
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return Turn{}, fmt.Errorf("read chat reply: %w", err)
		}
		var env struct {
			protocol.Envelope
			RequestID string `json:"request_id"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return Turn{}, fmt.Errorf("decode chat event: %w", err)
		}
		if env.RequestID != "" && env.RequestID != requestID {
			continue
		}
		switch env.Type {
		case protocol.TypeTurnState:
			var ev protocol.TurnState
			if err := json.Unmarshal(data, &ev); err == nil && onState != nil {
				onState(ev.State)
			}
		case protocol.TypeChatMessage:
			var ev protocol.ChatMessage
			if err := json.Unmarshal(data, &ev); err != nil {
				return Turn{}, fmt.Errorf("decode chat message: %w", err)
			}
			if ev.Role != "assistant" {
				turn.User = ev
				continue
			}
			turn.Reply = ev
			return turn, nil
		case protocol.TypeErrorEvent:
			var ev protocol.ErrorEvent
			_ = json.Unmarshal(data, &ev)
			return Turn{}, fmt.Errorf("chat turn failed (%s): %s", ev.Code, ev.Detail)
		}
	}
}
