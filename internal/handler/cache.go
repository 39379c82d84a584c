package handler

import (
	"log/slog"
	"net/http"
	"os"

	"searchsync/internal/contentcache"
	"searchsync/internal/httputil"
)

// CacheHandler serves content-addressed blobs back over HTTP under the
// cache URL prefix.
type CacheHandler struct {
	cache  *contentcache.Cache
	logger *slog.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *contentcache.Cache, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: logger,
	}
}

// Serve streams one cached blob. The shard and filename come straight from
// the stored document URL, so a row's url column is always fetchable here.
// GET /~cache/{shard}/{filename}
func (h *CacheHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, err := h.cache.Resolve(r.URL.Path)
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, "no such cached file")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		httputil.RespondError(w, http.StatusNotFound, "no such cached file")
		return
	}

	http.ServeFile(w, r, path)
}
