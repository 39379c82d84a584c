package contentcache

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// URLPrefix is the public path prefix under which cached content is served.
const URLPrefix = "/~cache/"

// SidecarSuffix names the JSON record written next to each cached blob.
const SidecarSuffix = ".info.json"

// Fingerprint returns the lowercase hex SHA-256 digest of content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Shard returns the two-character directory a fingerprint is filed under.
func Shard(fingerprint string) string {
	if len(fingerprint) < 2 {
		return fingerprint
	}
	return fingerprint[:2]
}

// FileName returns the on-disk name for a cached blob.
func FileName(fingerprint, ext string) string {
	return fingerprint + "." + ext
}

// URLPath returns the stable cache URL for a fingerprint and extension.
func URLPath(fingerprint, ext string) string {
	return URLPrefix + Shard(fingerprint) + "/" + FileName(fingerprint, ext)
}

// ExtensionFor picks the storage extension for an upload: the original
// filename's extension when it has one, otherwise one derived from the MIME
// type, otherwise "bin".
func ExtensionFor(filename, mimeType string) string {
	if ext := fileExt(filename); ext != "" {
		return strings.ToLower(ext)
	}
	if mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return "bin"
}

// fileExt returns the extension without its dot. A leading dot does not
// start an extension, so dotfiles such as ".env" have none.
func fileExt(name string) string {
	base := filepath.Base(name)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i+1:]
	}
	return ""
}

// ResolveMIME returns the MIME type recorded for an upload: looked up from
// the file name's extension when known, otherwise sniffed from the content.
// Parameters such as charset are stripped.
func ResolveMIME(filename string, content []byte) string {
	if ext := fileExt(filename); ext != "" {
		if mt := mime.TypeByExtension("." + ext); mt != "" {
			return stripParams(mt)
		}
	}
	return stripParams(mimetype.Detect(content).String())
}

func stripParams(mt string) string {
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return mt
}
