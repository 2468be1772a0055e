package handlers

import (
	"context"
	"net/http"
	"time"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
)

// IndexHandler handles HTTP requests for rebuilding the index.
type IndexHandler struct {
	engine indexer.Engine
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(engine indexer.Engine) *IndexHandler {
	return &IndexHandler{engine: engine}
}

// IndexResponse represents the response from the index endpoints.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST /api/index/rebuild. The rebuild runs in the background
// and the request returns immediately.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "index rebuild triggered via API")

	// The rebuild outlives the request.
	rebuildCtx := context.WithoutCancel(ctx)
	go func() {
		if err := h.engine.RebuildIndex(rebuildCtx); err != nil {
			logger.ErrorContext(rebuildCtx, "index rebuild failed", "error", err)
			return
		}
		logger.InfoContext(rebuildCtx, "index rebuilt, re-indexing vault in background")
	}()

	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: "Rebuild started. Use /api/index/wait to block until indexing finishes.",
		Status:  "accepted",
	})
}

// WaitHandler blocks until the engine is idle.
type WaitHandler struct {
	engine         indexer.Engine
	defaultTimeout time.Duration
}

// NewWaitHandler creates a new WaitHandler.
func NewWaitHandler(engine indexer.Engine) *WaitHandler {
	return &WaitHandler{engine: engine, defaultTimeout: 30 * time.Second}
}

// ServeHTTP handles POST /api/index/wait[?timeout=10s].
func (h *WaitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	timeout := h.defaultTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid timeout")
			return
		}
		timeout = d
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := h.engine.WaitForIdle(waitCtx); err != nil {
		handleEngineError(w, ctx, err, "Failed to wait for indexer")
		return
	}

	logger.DebugContext(ctx, "indexer idle", "waited", time.Since(start))
	writeJSON(ctx, w, http.StatusOK, IndexResponse{Message: "All queued work processed.", Status: "idle"})
}
