package handlers

import (
	"net/http"
	"strings"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
	"vaultindex/internal/search"
)

// SearchHandler handles full-text queries over note contents.
type SearchHandler struct {
	engine indexer.Engine
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine indexer.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// SearchResponse represents the HTTP response payload for searches.
//
// swagger:model SearchResponse
type SearchResponse struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
}

// ServeHTTP handles GET /api/search?q=.
//
// swagger:route GET /api/search searchNotes
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	hits := h.engine.Search(ctx, q)
	logger.DebugContext(ctx, "search completed", "query", q, "hits", len(hits))
	writeJSON(ctx, w, http.StatusOK, SearchResponse{Query: q, Hits: hits})
}
