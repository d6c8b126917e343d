package httpapi

import (
	"net/http"

	"github.com/momento-app/momento/internal/gamification"
	"github.com/momento-app/momento/internal/users"
)

type progressResponse struct {
	Profile  users.Profile         `json:"profile"`
	Progress gamification.Progress `json:"progress"`
	Badges   []gamification.Badge  `json:"badges"`
	Greeting string                `json:"greeting"`
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Users.GetCurrent(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Users.GetCurrent(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, progressResponse{
		Profile:  p,
		Progress: gamification.ProgressFor(p.XPPoints, p.Level),
		Badges:   gamification.Badges(p),
		Greeting: gamification.Greeting(s.now()),
	})
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	var req users.StatsUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Empty() {
		respondError(w, http.StatusBadRequest, "invalid_request", "no stats to update")
		return
	}
	p, err := s.deps.Users.UpdateStats(r.Context(), id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, fields, ok := s.decodePatch(w, r)
	if !ok {
		return
	}
	p, err := s.deps.Users.UpdateProfile(r.Context(), id, fields)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDailyPrompt(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"prompt":   gamification.DailyPrompt(s.pick),
		"greeting": gamification.Greeting(s.now()),
	})
}
