package handlers

import (
	"io"
	"net/http"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
	"vaultindex/internal/queue"
)

// maxTaskBody bounds the size of a submitted task record.
const maxTaskBody = 1 << 20

// TaskHandler accepts tagged task records and queues them.
type TaskHandler struct {
	engine indexer.Engine
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(engine indexer.Engine) *TaskHandler {
	return &TaskHandler{engine: engine}
}

// TaskResponse acknowledges a queued task.
//
// swagger:model TaskResponse
type TaskResponse struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// ServeHTTP handles POST /api/tasks with a body such as
// {"type":"rename_file","src_path":"a.md","dest_path":"b.md"}.
//
// swagger:route POST /api/tasks submitTask
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBody))
	if err != nil {
		logger.WarnContext(ctx, "failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := queue.Decode(body)
	if err != nil {
		handleEngineError(w, ctx, err, "Failed to decode task")
		return
	}
	if err := h.engine.Submit(task); err != nil {
		handleEngineError(w, ctx, err, "Failed to queue task")
		return
	}

	logger.InfoContext(ctx, "task queued", "type", task.Kind())
	writeJSON(ctx, w, http.StatusAccepted, TaskResponse{Status: "accepted", Type: string(task.Kind())})
}
