package models

import (
	"time"
)

// Reconciler-assigned lifecycle markers stored in the state column. Remote
// STATE_* values (STATE_PENDING, STATE_ACTIVE, STATE_FAILED, ...) land in the
// same column via the remote mirror; these markers overwrite them when the
// reconciler detects drift and are themselves overwritten on the next pass.
const (
	StateMissingFromRemote = "MISSING_FROM_REMOTE"
	StateMissingMetadata   = "MISSING_METADATA"
	StateMetadataMismatch  = "METADATA_MISMATCH"
	StateDuplicateFile     = "DUPLICATE_FILE"
)

type Document struct {
	ID          int64   `json:"id" db:"id"`
	FilestoreID int64   `json:"filestore_id" db:"filestore_id"`
	Owner       *string `json:"owner,omitempty" db:"owner"` // NULL = shared scope
	Filename    string  `json:"filename" db:"filename"`     // stored cache filename, "<hash>.<ext>"
	URL         string  `json:"url" db:"url"`               // /~cache/<shard>/<filename>
	Hash        string  `json:"hash" db:"hash"`             // hex SHA-256 of the raw content
	Size        int64   `json:"size" db:"size"`             // local byte count
	DisplayName string  `json:"display_name" db:"display_name"`
	MimeType    *string `json:"mime_type,omitempty" db:"mime_type"`
	Category    *string `json:"category,omitempty" db:"category"`
	Tags        *string `json:"tags,omitempty" db:"tags"` // arbitrary JSON tag scores, pass-through
	// Remote mirror, authoritative after upload, overwritten by reconciliation
	Name           *string    `json:"name,omitempty" db:"name"` // remote document resource name
	CustomMetadata *string    `json:"custom_metadata,omitempty" db:"custom_metadata"`
	SizeBytes      *int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	State          *string    `json:"state,omitempty" db:"state"`
	CreateTime     *time.Time `json:"create_time,omitempty" db:"create_time"`
	UpdateTime     *time.Time `json:"update_time,omitempty" db:"update_time"`
	// Upload lifecycle
	StartedAt  *time.Time `json:"started_at,omitempty" db:"started_at"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty" db:"uploaded_at"`
	Error      *string    `json:"error,omitempty" db:"error"`
	Metadata   *string    `json:"metadata,omitempty" db:"metadata"` // free-form JSON, pass-through
	Ref        *string    `json:"ref,omitempty" db:"ref"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsPending reports whether the worker should pick this document up: never
// started, never uploaded, no recorded error.
func (d *Document) IsPending() bool {
	return d.StartedAt == nil && d.UploadedAt == nil && d.Error == nil
}

// RemoteDocumentMirror is the authoritative remote projection overwritten onto
// the local row after a successful upload and when reconciliation detects
// field drift.
type RemoteDocumentMirror struct {
	Name           string     `json:"name"`
	DisplayName    string     `json:"display_name"`
	SizeBytes      *int64     `json:"size_bytes,omitempty"`
	MimeType       *string    `json:"mime_type,omitempty"`
	CreateTime     *time.Time `json:"create_time,omitempty"`
	UpdateTime     *time.Time `json:"update_time,omitempty"`
	State          *string    `json:"state,omitempty"`
	CustomMetadata *string    `json:"custom_metadata,omitempty"` // JSON-serialized custom metadata list
}

// DiffRemote returns the names of mirror fields whose values differ from the
// local row. An empty result means the row already matches the remote record.
func (d *Document) DiffRemote(m *RemoteDocumentMirror) []string {
	var drifted []string
	if d.Name == nil || *d.Name != m.Name {
		drifted = append(drifted, "name")
	}
	if d.DisplayName != m.DisplayName {
		drifted = append(drifted, "display_name")
	}
	if !eqInt64Ptr(d.SizeBytes, m.SizeBytes) {
		drifted = append(drifted, "size_bytes")
	}
	if !eqStrPtr(d.MimeType, m.MimeType) {
		drifted = append(drifted, "mime_type")
	}
	if !eqTimePtr(d.CreateTime, m.CreateTime) {
		drifted = append(drifted, "create_time")
	}
	if !eqTimePtr(d.UpdateTime, m.UpdateTime) {
		drifted = append(drifted, "update_time")
	}
	if !eqStrPtr(d.State, m.State) {
		drifted = append(drifted, "state")
	}
	if !eqStrPtr(d.CustomMetadata, m.CustomMetadata) {
		drifted = append(drifted, "custom_metadata")
	}
	return drifted
}

// CategoryCount is one row of the per-store category aggregate.
type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Count    int64  `json:"count" db:"count"`
	Size     int64  `json:"size" db:"size"`
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
