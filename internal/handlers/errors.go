package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
	"vaultindex/internal/queue"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// handleEngineError maps engine errors to HTTP status codes and responses.
func handleEngineError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *indexer.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "validation error", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, queue.ErrInvalidTask), errors.Is(err, indexer.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid input", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, indexer.ErrNotRunning):
		logger.WarnContext(ctx, "indexer not running")
		writeError(w, http.StatusServiceUnavailable, "Indexer is not running")
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "request timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "Timed out")
	default:
		logger.ErrorContext(ctx, "engine error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
