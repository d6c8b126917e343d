package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/protocol"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListMemoriesSendsMoodFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/memories", r.URL.Path)
		assert.Equal(t, "happy", r.URL.Query().Get("mood"))
		writeJSON(w, http.StatusOK, map[string]any{"memories": []map[string]any{
			{"id": 3, "content": "Picnic", "mood": "happy", "moodEmoji": "😊", "tags": []string{"park"}},
		}})
	}))
	defer srv.Close()

	items, err := New(srv.URL+"/", time.Second).ListMemories(context.Background(), "happy")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, "😊", items[0].MoodEmoji)
	assert.Equal(t, []string{"park"}, items[0].Tags)
}

func TestCreateMemoryDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Content: is required", "code": "invalid_request"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).CreateMemory(context.Background(), journal.CreateRequest{})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_request", apiErr.Code)
	assert.EqualError(t, err, "http 400: Content: is required")
}

func TestDeleteMemoryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/memories/7", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found", "code": "not_found"})
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).DeleteMemory(context.Background(), 7)
	assert.True(t, IsNotFound(err))
}

func TestChatSocketSendWaitsForAssistantReply(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		var in protocol.ClientChat
		if !assert.NoError(t, conn.ReadJSON(&in)) {
			return
		}
		_ = conn.WriteJSON(protocol.TurnState{Type: protocol.TypeTurnState, RequestID: "someone-else", State: "sending"})
		_ = conn.WriteJSON(protocol.TurnState{Type: protocol.TypeTurnState, RequestID: in.RequestID, State: "awaiting_reply"})
		_ = conn.WriteJSON(protocol.ChatMessage{Type: protocol.TypeChatMessage, RequestID: in.RequestID, ID: 1, Role: "user", Content: in.Text})
		_ = conn.WriteJSON(protocol.ChatMessage{Type: protocol.TypeChatMessage, RequestID: in.RequestID, ID: 2, Role: "assistant", Content: "Yay! 🎉"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	sock, err := New(srv.URL, time.Second).DialChat(context.Background())
	require.NoError(t, err)
	defer sock.Close()

	var states []string
	turn, err := sock.Send(context.Background(), "I passed!", func(s string) { states = append(states, s) })
	require.NoError(t, err)
	assert.Equal(t, int64(1), turn.User.ID)
	assert.Equal(t, "I passed!", turn.User.Content)
	assert.Equal(t, int64(2), turn.Reply.ID)
	assert.Equal(t, "Yay! 🎉", turn.Reply.Content)
	assert.Equal(t, []string{"awaiting_reply"}, states)
}

func TestChatSocketSendHonorsDeadline(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sock, err := New(srv.URL, time.Second).DialChat(context.Background())
	require.NoError(t, err)
	defer sock.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sock.Send(ctx, "hello?", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chat reply")
}
