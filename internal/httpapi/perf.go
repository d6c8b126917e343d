package httpapi

import (
	"net/http"

	"github.com/momento-app/momento/internal/observability"
)

// handlePerfLatency reports rolling chat turn phase latencies.
func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.TurnStageSnapshot{Stages: []observability.TurnStageStats{}})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}
