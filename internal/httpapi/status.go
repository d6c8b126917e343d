package httpapi

import (
	"errors"
	"net/http"

	"github.com/momento-app/momento/internal/users"
)

type statusCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type statusResponse struct {
	StoreMode      string        `json:"store_mode"`
	CompletionMode string        `json:"completion_mode"`
	Checks         []statusCheck `json:"checks"`
}

// handleStatus reports setup problems a local user can fix from the
// environment.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	storeMode := s.storeMode()
	checks := make([]statusCheck, 0, 4)

	switch storeMode {
	case "memory":
		checks = append(checks, statusCheck{
			ID:     "store",
			Status: "warn",
			Label:  "Journal storage",
			Detail: "in-memory only",
			Fix:    "Set MOMENTO_STORE_DRIVER=sqlite (or DATABASE_URL) to keep memories across restarts.",
		})
	case "disabled":
		checks = append(checks, statusCheck{ID: "store", Status: "error", Label: "Journal storage", Detail: "not configured"})
	default:
		check := statusCheck{ID: "store", Status: "ok", Label: "Journal storage", Detail: storeMode}
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			check.Status = "error"
			check.Detail = err.Error()
		}
		checks = append(checks, check)
	}

	switch s.deps.CompletionMode {
	case "", "mock":
		checks = append(checks, statusCheck{
			ID:     "completion",
			Status: "warn",
			Label:  "Chat companion",
			Detail: "mock replies",
			Fix:    "Set MOMENTO_OPENAI_API_KEY or MOMENTO_COMPLETION_HTTP_URL for real replies.",
		})
	default:
		checks = append(checks, statusCheck{ID: "completion", Status: "ok", Label: "Chat companion", Detail: s.deps.CompletionMode})
	}

	if s.deps.Users != nil {
		check := statusCheck{ID: "profile", Status: "ok", Label: "Profile"}
		p, err := s.deps.Users.GetCurrent(r.Context())
		switch {
		case err == nil:
			check.Detail = p.Name
		case errors.Is(err, users.ErrNoProfile):
			check.Status = "warn"
			check.Detail = "no profile yet"
			check.Fix = "Set MOMENTO_SEED_DEFAULT_USER=true to create one on startup."
		default:
			check.Status = "error"
			check.Detail = err.Error()
		}
		checks = append(checks, check)
	}

	respondJSON(w, http.StatusOK, statusResponse{
		StoreMode:      storeMode,
		CompletionMode: s.deps.CompletionMode,
		Checks:         checks,
	})
}
