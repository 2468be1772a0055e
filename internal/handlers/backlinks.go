package handlers

import (
	"net/http"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
)

// BacklinksHandler lists the notes linking to a page.
type BacklinksHandler struct {
	engine indexer.Engine
}

// NewBacklinksHandler creates a new BacklinksHandler.
func NewBacklinksHandler(engine indexer.Engine) *BacklinksHandler {
	return &BacklinksHandler{engine: engine}
}

// BacklinksResponse represents the HTTP response payload for backlinks.
//
// swagger:model BacklinksResponse
type BacklinksResponse struct {
	Page      string   `json:"page"`
	Backlinks []string `json:"backlinks"`
}

// ServeHTTP handles GET /api/backlinks?page=.
func (h *BacklinksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	page := r.URL.Query().Get("page")
	if page == "" {
		writeError(w, http.StatusBadRequest, "Query parameter page is required")
		return
	}

	paths, err := h.engine.Backlinks(ctx, page)
	if err != nil {
		handleEngineError(w, ctx, err, "Failed to query backlinks")
		return
	}
	if paths == nil {
		paths = []string{}
	}

	logger.DebugContext(ctx, "backlinks resolved", "page", page, "count", len(paths))
	writeJSON(ctx, w, http.StatusOK, BacklinksResponse{Page: page, Backlinks: paths})
}
