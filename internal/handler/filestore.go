package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"searchsync/internal/domain/models"
	"searchsync/internal/domain/services"
	"searchsync/internal/httputil"
)

// FilestoreHandler handles filestore HTTP requests
type FilestoreHandler struct {
	filestoreService services.FilestoreService
	reconcileService services.ReconcileService
	logger           *slog.Logger
}

// NewFilestoreHandler creates a new filestore handler
func NewFilestoreHandler(filestoreService services.FilestoreService, reconcileService services.ReconcileService, logger *slog.Logger) *FilestoreHandler {
	return &FilestoreHandler{
		filestoreService: filestoreService,
		reconcileService: reconcileService,
		logger:           logger,
	}
}

// Create creates a filestore locally and provisions its remote store.
// POST /api/filestores
func (h *FilestoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := httputil.GetOwner(r)

	var req services.CreateFilestoreRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, err := h.filestoreService.Create(r.Context(), owner, &req)
	if err != nil {
		// Handle conflict by fetching and returning the existing store with 409
		HandleCreateConflict(w, err, func(id string) (*models.Filestore, error) {
			existingID, convErr := strconv.ParseInt(id, 10, 64)
			if convErr != nil {
				return nil, err
			}
			return h.filestoreService.Get(r.Context(), owner, existingID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, store)
}

// List retrieves filestores with pagination and search.
// GET /api/filestores
func (h *FilestoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.filestoreService.List(r.Context(), httputil.GetOwner(r), filestoreQueryFromRequest(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, stores)
}

// Get retrieves one filestore row.
// GET /api/filestores/{storeID}
func (h *FilestoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	store, err := h.filestoreService.Get(r.Context(), httputil.GetOwner(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, store)
}

// Delete removes a filestore: the remote store, every local document row and
// the store row itself.
// DELETE /api/filestores/{storeID}
func (h *FilestoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	if err := h.filestoreService.Delete(r.Context(), httputil.GetOwner(r), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Sync reconciles the store's local rows against the full remote listing and
// returns the discrepancy report.
// POST /api/filestores/{storeID}/sync
func (h *FilestoreHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	report, err := h.reconcileService.Sync(r.Context(), httputil.GetOwner(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}
