package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/momento-app/momento/internal/chat"
	"github.com/momento-app/momento/internal/protocol"
	"github.com/momento-app/momento/internal/records"
)

const (
	wsReadLimit    = 64 << 10
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS runs chat turns over a websocket. The read loop parses client
// envelopes, a turn goroutine handles them in order and a single writer owns
// the connection for outbound frames.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "chat not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := s.log.With().Str("conn_id", connID).Logger()
	s.metrics.SetActiveChatSockets(1)
	defer s.metrics.SetActiveChatSockets(-1)
	log.Debug().Msg("chat socket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 16)
	outbound := make(chan any, 64)

	emit := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	turnsDone := make(chan struct{})
	go func() {
		defer close(turnsDone)
		for msg := range inbound {
			s.runSocketTurn(ctx, msg, emit)
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug().Err(err).Msg("chat socket write failed")
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			code := "invalid_client_message"
			if errors.Is(err, protocol.ErrUnsupportedType) {
				code = "unsupported_message_type"
			}
			select {
			case outbound <- protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: code, Detail: err.Error()}:
			default:
				// Writes stay single-threaded; drop when the queue is full.
				log.Warn().Msg("outbound queue full, dropping error event")
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	close(inbound)
	<-turnsDone
	cancel()
	<-writerDone
	log.Debug().Msg("chat socket disconnected")
}

func (s *Server) runSocketTurn(ctx context.Context, msg any, emit func(any)) {
	switch m := msg.(type) {
	case protocol.ClientChat:
		onState := func(st chat.TurnState) {
			emit(protocol.TurnState{Type: protocol.TypeTurnState, RequestID: m.RequestID, State: string(st)})
		}
		ex, err := s.deps.Chat.Send(ctx, m.Text, onState)
		if ex.UserMessage.ID != 0 {
			emit(chatMessageEvent(m.RequestID, ex.UserMessage, false))
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Str("source", m.Source).Msg("chat turn failed")
			}
			emit(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				RequestID: m.RequestID,
				Code:      errorCode(err),
				Retryable: !records.IsValidation(err),
				Detail:    err.Error(),
			})
			return
		}
		emit(chatMessageEvent(m.RequestID, ex.AssistantMessage, ex.Fallback))
	case protocol.ClientClear:
		n, err := s.deps.Chat.ClearHistory(ctx)
		if err != nil {
			emit(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, RequestID: m.RequestID, Code: errorCode(err), Retryable: true, Detail: err.Error()})
			return
		}
		emit(protocol.HistoryCleared{Type: protocol.TypeHistoryCleared, RequestID: m.RequestID, Deleted: n})
	}
}

func errorCode(err error) string {
	switch {
	case records.IsValidation(err):
		return "invalid_request"
	case errors.Is(err, records.ErrNotFound):
		return "not_found"
	default:
		return "store_unavailable"
	}
}

func chatMessageEvent(requestID string, m chat.Message, fallback bool) protocol.ChatMessage {
	return protocol.ChatMessage{
		Type:      protocol.TypeChatMessage,
		RequestID: requestID,
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(records.TimeLayout),
		Fallback:  fallback,
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientChat:
		return m.Type, true
	case protocol.ClientClear:
		return m.Type, true
	case protocol.TurnState:
		return m.Type, true
	case protocol.ChatMessage:
		return m.Type, true
	case protocol.HistoryCleared:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
