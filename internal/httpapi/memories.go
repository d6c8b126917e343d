package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/users"
)

type memoryResponse struct {
	journal.Memory
	MoodEmoji string `json:"moodEmoji"`
}

type rewardStatus struct {
	Applied bool           `json:"applied"`
	Profile *users.Profile `json:"profile,omitempty"`
}

type createMemoryResponse struct {
	Memory  memoryResponse `json:"memory"`
	Reward  rewardStatus   `json:"reward"`
	Warning string         `json:"warning,omitempty"`
}

const rewardWarning = "Memory saved, but your streak and XP could not be updated."

func withEmoji(m journal.Memory) memoryResponse {
	return memoryResponse{Memory: m, MoodEmoji: journal.MoodEmoji(m.Mood)}
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	var (
		items []journal.Memory
		err   error
	)
	if mood := strings.TrimSpace(r.URL.Query().Get("mood")); mood != "" {
		items, err = s.deps.Memories.ListByMood(r.Context(), mood)
	} else {
		items, err = s.deps.Memories.ListAll(r.Context())
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	out := make([]memoryResponse, 0, len(items))
	for _, m := range items {
		out = append(out, withEmoji(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{"memories": out})
}

// handleCreateMemory saves the memory, then applies the reward rule. A
// failed reward is reported as a warning; the memory stays saved.
func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req journal.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := journal.ValidateContent(req.Content); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if req.UserID == 0 && s.deps.Users != nil {
		profile, err := s.deps.Users.GetCurrent(r.Context())
		switch {
		case err == nil:
			req.UserID = profile.ID
		case errors.Is(err, users.ErrNoProfile):
		default:
			s.log.Warn().Err(err).Msg("current profile unavailable, saving memory for default user")
		}
	}

	m, err := s.deps.Memories.Create(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	resp := createMemoryResponse{Memory: withEmoji(m)}
	if s.deps.Rewarder != nil {
		profile, err := s.deps.Rewarder.RewardMemory(r.Context(), m.UserID)
		if err != nil {
			s.log.Warn().Err(err).Int64("memory_id", m.ID).Int64("user_id", m.UserID).Msg("memory saved without reward")
			resp.Warning = rewardWarning
		} else {
			resp.Reward = rewardStatus{Applied: true, Profile: &profile}
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	m, err := s.deps.Memories.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, withEmoji(m))
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, fields, ok := s.decodePatch(w, r)
	if !ok {
		return
	}
	if content, present := fields["content"]; present {
		text, _ := content.(string)
		if err := journal.ValidateContent(text); err != nil {
			s.respondServiceError(w, r, err)
			return
		}
	}
	m, err := s.deps.Memories.Update(r.Context(), id, fields)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, withEmoji(m))
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	if err := s.deps.Memories.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
