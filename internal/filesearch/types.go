package filesearch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Int64String handles int64 fields that the remote API encodes as decimal
// strings ("sizeBytes": "1593817") but may also return as bare numbers.
type Int64String int64

func (v *Int64String) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse int64 %q: %w", string(data), err)
	}
	*v = Int64String(n)
	return nil
}

func (v Int64String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(v), 10))), nil
}

// Int64 returns the plain integer value
func (v Int64String) Int64() int64 { return int64(v) }

// Store is a remote file-search store record
type Store struct {
	Name                  string      `json:"name"`
	DisplayName           string      `json:"displayName"`
	CreateTime            *time.Time  `json:"createTime,omitempty"`
	UpdateTime            *time.Time  `json:"updateTime,omitempty"`
	ActiveDocumentsCount  Int64String `json:"activeDocumentsCount,omitempty"`
	PendingDocumentsCount Int64String `json:"pendingDocumentsCount,omitempty"`
	FailedDocumentsCount  Int64String `json:"failedDocumentsCount,omitempty"`
	SizeBytes             Int64String `json:"sizeBytes,omitempty"`
}

// CustomMetadata is one typed key/value annotation on a remote document.
// Exactly one of the value fields is set.
type CustomMetadata struct {
	Key             string           `json:"key"`
	StringValue     *string          `json:"stringValue,omitempty"`
	NumericValue    *float64         `json:"numericValue,omitempty"`
	StringListValue *StringListValue `json:"stringListValue,omitempty"`
}

// StringListValue wraps the list variant of a custom metadata value
type StringListValue struct {
	Values []string `json:"values"`
}

// Document is a remote file-search document record
type Document struct {
	Name           string           `json:"name"`
	DisplayName    string           `json:"displayName,omitempty"`
	MimeType       string           `json:"mimeType,omitempty"`
	SizeBytes      Int64String      `json:"sizeBytes,omitempty"`
	CreateTime     *time.Time       `json:"createTime,omitempty"`
	UpdateTime     *time.Time       `json:"updateTime,omitempty"`
	State          string           `json:"state,omitempty"`
	CustomMetadata []CustomMetadata `json:"customMetadata,omitempty"`
}

// DocumentPage is one page of a store's document listing
type DocumentPage struct {
	Documents     []Document `json:"documents"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// Operation is a long-running upload operation. Done=false means still
// processing; on completion either Error or Response is populated.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done,omitempty"`
	Error    *OperationError `json:"error,omitempty"`
	Response *UploadResponse `json:"response,omitempty"`
}

// OperationError is the failure payload of a completed operation
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// UploadResponse carries the created document's resource name
type UploadResponse struct {
	DocumentName string `json:"documentName"`
}

// UploadRequest describes one document upload. MimeType is optional: some
// declared types make the remote call reject the upload, so callers set it
// only for an allow-listed set of extensions and let the service infer it
// otherwise.
type UploadRequest struct {
	DisplayName    string
	MimeType       string
	CustomMetadata []CustomMetadata
	Content        []byte
}
