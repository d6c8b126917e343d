package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/capsules"
	"github.com/momento-app/momento/internal/chat"
	"github.com/momento-app/momento/internal/journal"
	"github.com/momento-app/momento/internal/observability"
	"github.com/momento-app/momento/internal/records"
	"github.com/momento-app/momento/internal/users"
)

// StoreStatus is the slice of the record store the server reports on.
type StoreStatus interface {
	Mode() string
	Ping(ctx context.Context) error
}

// Rewarder applies the memory reward rule after a memory is saved.
type Rewarder interface {
	RewardMemory(ctx context.Context, userID int64) (users.Profile, error)
}

// Deps wires the services behind the HTTP API.
type Deps struct {
	Store          StoreStatus
	Memories       *journal.Service
	Capsules       *capsules.Service
	Chat           *chat.Service
	Users          *users.Service
	Rewarder       Rewarder
	Metrics        *observability.Metrics
	Logger         zerolog.Logger
	CompletionMode string
	AllowAnyOrigin bool

	// Pick chooses the daily prompt; defaults to math/rand.
	Pick func(n int) int
	Now  func() time.Time
}

type Server struct {
	deps     Deps
	log      zerolog.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	now      func() time.Time
	pick     func(n int) int
}

func New(deps Deps) *Server {
	s := &Server{
		deps:    deps,
		log:     deps.Logger.With().Str("component", "httpapi").Logger(),
		metrics: deps.Metrics,
		now:     deps.Now,
		pick:    deps.Pick,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser sockets must come from the same origin unless opted out.
				if deps.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pick == nil {
		s.pick = rand.IntN
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID, s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/perf/latency", s.handlePerfLatency)

		r.Get("/memories", s.handleListMemories)
		r.Post("/memories", s.handleCreateMemory)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Patch("/memories/{id}", s.handleUpdateMemory)
		r.Delete("/memories/{id}", s.handleDeleteMemory)

		r.Get("/capsules", s.handleListCapsules)
		r.Post("/capsules", s.handleCreateCapsule)
		r.Get("/capsules/{id}", s.handleGetCapsule)
		r.Patch("/capsules/{id}", s.handleUpdateCapsule)
		r.Delete("/capsules/{id}", s.handleDeleteCapsule)
		r.Post("/capsules/{id}/unlock", s.handleUnlockCapsule)

		r.Get("/chat/messages", s.handleListChat)
		r.Post("/chat/messages", s.handleSendChat)
		r.Delete("/chat/messages", s.handleClearChat)
		r.Get("/chat/ws", s.handleChatWS)

		r.Get("/users/me", s.handleCurrentUser)
		r.Get("/users/me/progress", s.handleProgress)
		r.Patch("/users/{id}/stats", s.handleUpdateStats)
		r.Patch("/users/{id}/profile", s.handleUpdateProfile)

		r.Get("/prompts/daily", s.handleDailyPrompt)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"store_mode":      s.storeMode(),
		"completion_mode": s.deps.CompletionMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("readiness check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":     "unavailable",
				"store_mode": s.storeMode(),
				"error":      err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) storeMode() string {
	if s.deps.Store == nil {
		return "disabled"
	}
	return s.deps.Store.Mode()
}

type requestIDKey struct{}

// requestID tags every request with a correlation id, honoring one sent by
// the client.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(started)).
			Msg("request served")
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondServiceError maps service errors onto HTTP statuses. Store and
// network failures surface as 502 with a generic message; the detail is
// logged by the record store.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *records.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.Is(err, records.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case capsules.IsStillLocked(err):
		respondError(w, http.StatusConflict, "still_locked", err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		s.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusBadGateway, "store_unavailable", "The journal store is unavailable. Please try again.")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) decodePatch(w http.ResponseWriter, r *http.Request) (int64, map[string]any, bool) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, nil, false
	}
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return 0, nil, false
	}
	return id, fields, true
}
