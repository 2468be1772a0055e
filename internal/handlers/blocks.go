package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaultindex/internal/indexer"
)

// BlockResponse is one content block.
//
// swagger:model BlockResponse
type BlockResponse struct {
	Hash    string `json:"hash"`
	Content string `json:"content"`
}

// BlockSearchResponse represents the HTTP response payload for block searches.
//
// swagger:model BlockSearchResponse
type BlockSearchResponse struct {
	Prefix string          `json:"prefix"`
	Blocks []BlockResponse `json:"blocks"`
}

// FanOutResponse reports how many files share a block.
//
// swagger:model FanOutResponse
type FanOutResponse struct {
	Hash  string `json:"hash"`
	Files int    `json:"files"`
}

// BlocksHandler serves block queries.
type BlocksHandler struct {
	engine indexer.Engine
}

// NewBlocksHandler creates a new BlocksHandler.
func NewBlocksHandler(engine indexer.Engine) *BlocksHandler {
	return &BlocksHandler{engine: engine}
}

// Search handles GET /api/blocks?prefix=&limit=.
func (h *BlocksHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "Query parameter prefix is required")
		return
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	blocks, err := h.engine.SearchBlocks(ctx, prefix, limit)
	if err != nil {
		handleEngineError(w, ctx, err, "Failed to search blocks")
		return
	}

	resp := BlockSearchResponse{Prefix: prefix, Blocks: make([]BlockResponse, 0, len(blocks))}
	for _, b := range blocks {
		resp.Blocks = append(resp.Blocks, BlockResponse{Hash: b.Hash, Content: b.Content})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// FanOut handles GET /api/blocks/{hash}/fanout.
func (h *BlocksHandler) FanOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash := chi.URLParam(r, "hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "Block hash is required")
		return
	}

	n, err := h.engine.BlockFanOut(ctx, hash)
	if err != nil {
		handleEngineError(w, ctx, err, "Failed to count block references")
		return
	}
	writeJSON(ctx, w, http.StatusOK, FanOutResponse{Hash: hash, Files: n})
}
