package handler

import (
	"log/slog"
	"net/http"

	"searchsync/internal/domain/services"
	"searchsync/internal/httputil"
)

// WorkerHandler exposes manual control over the background upload worker
type WorkerHandler struct {
	worker services.UploadWorker
	logger *slog.Logger
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(worker services.UploadWorker, logger *slog.Logger) *WorkerHandler {
	return &WorkerHandler{
		worker: worker,
		logger: logger,
	}
}

// Kick starts an upload run when none is active. Kicking a busy worker is a
// no-op reported as started=false.
// POST /api/worker/kick
func (h *WorkerHandler) Kick(w http.ResponseWriter, r *http.Request) {
	started := h.worker.Kick()
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{
		"started": started,
		"running": h.worker.Running(),
	})
}
