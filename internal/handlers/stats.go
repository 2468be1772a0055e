package handlers

import (
	"net/http"

	"vaultindex/internal/indexer"
)

// StatsHandler reports index statistics.
type StatsHandler struct {
	engine indexer.Engine
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(engine indexer.Engine) *StatsHandler {
	return &StatsHandler{engine: engine}
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		handleEngineError(w, ctx, err, "Failed to compute stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
