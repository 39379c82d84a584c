package contentcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache is a content-addressed blob store on the local filesystem. Blobs
// live under <root>/<shard>/<fingerprint>.<ext> with a JSON sidecar
// describing the upload next to each one.
type Cache struct {
	root string
}

// New creates a cache rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Info is the sidecar record written next to each cached blob.
type Info struct {
	Date int64  `json:"date"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Store writes a blob and its sidecar under the fingerprint's shard.
func (c *Cache) Store(fingerprint, ext string, content []byte, info Info) error {
	dir := filepath.Join(c.root, Shard(fingerprint))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	blobPath := filepath.Join(dir, FileName(fingerprint, ext))
	if err := os.WriteFile(blobPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write cached content: %w", err)
	}

	sidecar, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal cache info: %w", err)
	}
	infoPath := filepath.Join(dir, fingerprint+SidecarSuffix)
	if err := os.WriteFile(infoPath, sidecar, 0o644); err != nil {
		return fmt.Errorf("failed to write cache info: %w", err)
	}
	return nil
}

// Resolve maps a cache URL back to its on-disk path. It rejects URLs
// outside the cache prefix and any path that would escape the root.
func (c *Cache) Resolve(urlPath string) (string, error) {
	rel, ok := strings.CutPrefix(urlPath, URLPrefix)
	if !ok {
		return "", fmt.Errorf("url %q is not cache-addressed", urlPath)
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("url %q escapes the cache root", urlPath)
	}
	return filepath.Join(c.root, rel), nil
}

// Read returns the blob a cache URL points at. Missing files surface as
// fs.ErrNotExist through the error chain.
func (c *Cache) Read(urlPath string) ([]byte, error) {
	path, err := c.Resolve(urlPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached content: %w", err)
	}
	return data, nil
}

// Exists reports whether a cache URL resolves to an existing blob.
func (c *Cache) Exists(urlPath string) bool {
	path, err := c.Resolve(urlPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Remove deletes the blob a cache URL points at, along with its sidecar.
// Removing an absent blob is not an error.
func (c *Cache) Remove(urlPath string) error {
	path, err := c.Resolve(urlPath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cached content: %w", err)
	}
	ext := filepath.Ext(path)
	sidecar := strings.TrimSuffix(path, ext) + SidecarSuffix
	if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache info: %w", err)
	}
	return nil
}
