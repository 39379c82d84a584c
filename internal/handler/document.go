package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"searchsync/internal/config"
	"searchsync/internal/domain/services"
	"searchsync/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService services.DocumentService
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// HealthCheck reports liveness.
// GET /api/health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}

// Upload ingests one or more files into a filestore. Files arrive as
// multipart parts under the "file" field or any field prefixed with it
// ("file", "file1", "files", ...); an optional category query parameter
// labels the whole batch.
// POST /api/filestores/{storeID}/upload?category=...
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	uploads, err := collectUploads(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(uploads) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	category := r.URL.Query().Get("category")

	docs, err := h.docService.Ingest(r.Context(), httputil.GetOwner(r), storeID, category, uploads)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, docs)
}

// collectUploads reads every multipart file part whose field name starts
// with "file", in deterministic field order.
func collectUploads(r *http.Request) ([]services.IngestUpload, error) {
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		if strings.HasPrefix(field, "file") {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	var uploads []services.IngestUpload
	for _, field := range fields {
		for _, header := range r.MultipartForm.File[field] {
			part, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open file %q", header.Filename)
			}
			content, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read file %q", header.Filename)
			}
			uploads = append(uploads, services.IngestUpload{
				Filename: header.Filename,
				Content:  content,
			})
		}
	}
	return uploads, nil
}

// Query lists local documents across stores with filters and pagination.
// GET /api/documents
func (h *DocumentHandler) Query(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docService.Query(r.Context(), httputil.GetOwner(r), documentQueryFromRequest(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// Get retrieves one document row.
// GET /api/documents/{documentID}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	doc, err := h.docService.Get(r.Context(), httputil.GetOwner(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes a document locally and from the remote index.
// DELETE /api/documents/{documentID}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	if err := h.docService.Delete(r.Context(), httputil.GetOwner(r), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Retry requeues a failed or stuck document and waits a bounded time for the
// worker to finish it, returning the latest row state either way.
// POST /api/documents/{documentID}/retry
func (h *DocumentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	doc, err := h.docService.Retry(r.Context(), httputil.GetOwner(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Categories returns per-category document counts and sizes for a store.
// GET /api/filestores/{storeID}/categories
func (h *DocumentHandler) Categories(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	counts, err := h.docService.Categories(r.Context(), httputil.GetOwner(r), storeID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, counts)
}

// ListRemote proxies the store's full remote document listing.
// GET /api/filestores/{storeID}/documents
func (h *DocumentHandler) ListRemote(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}

	docs, err := h.docService.ListRemote(r.Context(), httputil.GetOwner(r), storeID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}
