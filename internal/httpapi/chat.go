package httpapi

import (
	"net/http"
	"strings"
)

type sendChatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Chat.ListMessages(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// handleSendChat runs one turn. Completion failures still return 200 with a
// fallback reply; only storage failures are errors.
func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req sendChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ex, err := s.deps.Chat.SendMessageWithReply(r.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Chat.ClearHistory(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
