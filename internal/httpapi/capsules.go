package httpapi

import (
	"net/http"

	"github.com/momento-app/momento/internal/capsules"
	"github.com/momento-app/momento/internal/records"
)

type createCapsuleRequest struct {
	Message        string   `json:"message"`
	UnlockDate     string   `json:"unlockDate"`
	RecipientEmail string   `json:"recipientEmail"`
	Tags           []string `json:"tags"`
	UserID         int64    `json:"userId"`
}

func (s *Server) handleListCapsules(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Capsules.ListAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	now := s.deps.Capsules.Now()
	out := make([]capsules.View, 0, len(items))
	for _, c := range items {
		out = append(out, c.ViewAt(now))
	}
	respondJSON(w, http.StatusOK, map[string]any{"capsules": out})
}

func (s *Server) handleCreateCapsule(w http.ResponseWriter, r *http.Request) {
	var req createCapsuleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	unlockDate, err := records.ParseTime(req.UnlockDate)
	if err != nil {
		s.respondServiceError(w, r, &records.ValidationError{Field: "Unlock Date", Message: err.Error()})
		return
	}
	now := s.deps.Capsules.Now()
	if err := capsules.ValidateUnlockDate(req.Message, unlockDate, now); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	c, err := s.deps.Capsules.Create(r.Context(), capsules.CreateRequest{
		Message:        req.Message,
		UnlockDate:     unlockDate,
		RecipientEmail: req.RecipientEmail,
		Tags:           req.Tags,
		UserID:         req.UserID,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c.ViewAt(now))
}

func (s *Server) handleGetCapsule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	c, err := s.deps.Capsules.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c.ViewAt(s.deps.Capsules.Now()))
}

func (s *Server) handleUpdateCapsule(w http.ResponseWriter, r *http.Request) {
	id, fields, ok := s.decodePatch(w, r)
	if !ok {
		return
	}
	c, err := s.deps.Capsules.Update(r.Context(), id, fields)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c.ViewAt(s.deps.Capsules.Now()))
}

func (s *Server) handleDeleteCapsule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	if err := s.deps.Capsules.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlockCapsule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	c, err := s.deps.Capsules.MarkUnlocked(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c.ViewAt(s.deps.Capsules.Now()))
}
