package mimetypes

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

type uploadTypesFile struct {
	UploadTypes map[string]string `yaml:"upload_types"`
}

// Registry maps file extensions to the MIME type forced onto remote
// uploads. Most uploads omit an explicit type and let the remote service
// detect one; the extensions listed here are the exceptions where the
// detected type gets the upload rejected.
type Registry struct {
	uploadTypes map[string]string
	mu          sync.RWMutex
}

// NewRegistry loads the embedded defaults and applies overrides parsed
// from an "ext:mime,ext:mime" list, typically the UPLOAD_MIME_TYPES
// environment variable.
func NewRegistry(overrides string) (*Registry, error) {
	r := &Registry{
		uploadTypes: make(map[string]string),
	}

	if err := r.loadDefaults(); err != nil {
		return nil, err
	}
	r.applyOverrides(overrides)

	return r, nil
}

func (r *Registry) loadDefaults() error {
	data, err := configFiles.ReadFile("config/upload_types.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config/upload_types.yaml: %w", err)
	}

	var cfg uploadTypesFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config/upload_types.yaml: %w", err)
	}

	r.mu.Lock()
	for ext, mimeType := range cfg.UploadTypes {
		r.uploadTypes[normalizeExt(ext)] = strings.TrimSpace(mimeType)
	}
	r.mu.Unlock()

	return nil
}

// applyOverrides merges "ext:mime" pairs into the table. Entries without
// a colon are skipped.
func (r *Registry) applyOverrides(list string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pair := range strings.Split(list, ",") {
		ext, mimeType, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		ext = normalizeExt(ext)
		mimeType = strings.TrimSpace(mimeType)
		if ext == "" || mimeType == "" {
			continue
		}
		r.uploadTypes[ext] = mimeType
	}
}

// UploadMIME returns the forced upload MIME type for an extension, if any.
func (r *Registry) UploadMIME(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mimeType, ok := r.uploadTypes[normalizeExt(ext)]
	return mimeType, ok
}

// ForFilename looks up the forced upload MIME type by a file name's
// extension.
func (r *Registry) ForFilename(name string) (string, bool) {
	return r.UploadMIME(path.Ext(name))
}

// Extensions returns the extensions with a forced upload type.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.uploadTypes))
	for ext := range r.uploadTypes {
		exts = append(exts, ext)
	}
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
