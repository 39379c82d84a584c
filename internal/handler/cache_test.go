package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"searchsync/internal/contentcache"
)

func TestCacheHandler_Serve(t *testing.T) {
	cache := contentcache.New(t.TempDir())
	content := []byte("cached bytes")
	hash := contentcache.Fingerprint(content)
	if err := cache.Store(hash, "txt", content, contentcache.Info{Size: int64(len(content))}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	h := NewCacheHandler(cache, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /~cache/{shard}/{filename}", h.Serve)

	t.Run("serves a stored blob", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, contentcache.URLPath(hash, "txt"), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Body.String(); got != string(content) {
			t.Errorf("body = %q, want %q", got, content)
		}
	})

	t.Run("missing blob is a 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/~cache/zz/"+strings.Repeat("0", 64)+".txt", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("path escape is rejected", func(t *testing.T) {
		// hit the handler directly; the mux would clean the dots first
		req := httptest.NewRequest(http.MethodGet, "/~cache/ab/x.txt", nil)
		req.URL.Path = "/~cache/../secrets.txt"
		rec := httptest.NewRecorder()
		h.Serve(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("shard directory is not listable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/~cache/"+contentcache.Shard(hash), nil)
		rec := httptest.NewRecorder()
		h.Serve(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
