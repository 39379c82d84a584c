package models

import (
	"time"
)

type Filestore struct {
	ID          int64   `json:"id" db:"id"`
	Owner       *string `json:"owner,omitempty" db:"owner"` // NULL = shared/unscoped store
	Name        *string `json:"name,omitempty" db:"name"`   // remote resource name, set once remote creation succeeds
	DisplayName string  `json:"display_name" db:"display_name"`
	// Remote aggregate mirror, overwritten after worker runs and reconciliation
	ActiveDocumentsCount  *int64     `json:"active_documents_count,omitempty" db:"active_documents_count"`
	PendingDocumentsCount *int64     `json:"pending_documents_count,omitempty" db:"pending_documents_count"`
	FailedDocumentsCount  *int64     `json:"failed_documents_count,omitempty" db:"failed_documents_count"`
	SizeBytes             *int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	CreateTime            *time.Time `json:"create_time,omitempty" db:"create_time"`
	UpdateTime            *time.Time `json:"update_time,omitempty" db:"update_time"`
	Metadata              *string    `json:"metadata,omitempty" db:"metadata"` // arbitrary caller JSON, pass-through
	Error                 *string    `json:"error,omitempty" db:"error"`      // last remote-create failure
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// RemoteStoreMirror is the projection of a remote store record written back
// onto the local row by the aggregate refresh after worker runs and
// reconciliation passes.
type RemoteStoreMirror struct {
	DisplayName           string
	CreateTime            *time.Time
	UpdateTime            *time.Time
	ActiveDocumentsCount  *int64
	PendingDocumentsCount *int64
	FailedDocumentsCount  *int64
	SizeBytes             *int64
}
