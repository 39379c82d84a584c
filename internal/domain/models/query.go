package models

import (
	"fmt"
)

// DocumentSort selects the ordering of document listings
type DocumentSort string

const (
	// DocumentSortNewest orders by local id descending (insertion order)
	DocumentSortNewest DocumentSort = "newest"

	// DocumentSortOldest orders by local id ascending
	DocumentSortOldest DocumentSort = "oldest"

	// DocumentSortName orders by display name
	DocumentSortName DocumentSort = "name"

	// DocumentSortSize orders by local byte size, largest first
	DocumentSortSize DocumentSort = "size"

	// DocumentSortUploading floats in-flight documents to the front
	// (oldest first), pushing finished ones to the back by upload time
	DocumentSortUploading DocumentSort = "uploading"
)

// DocumentState filters listings by derived lifecycle state. The states are
// derived from the started/uploaded/error columns, not stored directly.
type DocumentState string

const (
	DocumentStateAny       DocumentState = ""
	DocumentStatePending   DocumentState = "pending"   // not started, not uploaded, no error
	DocumentStateUploading DocumentState = "uploading" // started, not yet finished
	DocumentStateUploaded  DocumentState = "uploaded"  // uploaded
	DocumentStateFailed    DocumentState = "failed"    // error recorded
)

// Default pagination values shared by document and filestore queries
const (
	DefaultQueryTake = 50
	MaxQueryTake     = 1000
	DefaultQuerySkip = 0
)

// DocumentQuery configures filtered document listings. Zero values mean
// "no filter" (FilestoreID 0 = all stores the owner can see).
type DocumentQuery struct {
	// FilestoreID limits results to one store (0 = all)
	FilestoreID int64

	// IDs limits results to an explicit id set
	IDs []int64

	// Hash is an exact content-hash filter
	Hash string

	// State filters by derived lifecycle state
	State DocumentState

	// Search is a case-insensitive substring match on display_name
	Search string

	// Sort selects the ordering (default: newest)
	Sort DocumentSort

	// Pagination
	Take int // rows to return (default 50, capped at 1000)
	Skip int // rows to skip (default 0)
}

// ApplyDefaults fills in default values for unset fields and clamps Take
func (q *DocumentQuery) ApplyDefaults() {
	if q.Take <= 0 {
		q.Take = DefaultQueryTake
	}
	if q.Take > MaxQueryTake {
		q.Take = MaxQueryTake
	}
	if q.Skip < 0 {
		q.Skip = DefaultQuerySkip
	}
	if q.Sort == "" {
		q.Sort = DocumentSortNewest
	}
}

// Validate checks that enum fields hold supported values
func (q *DocumentQuery) Validate() error {
	switch q.Sort {
	case DocumentSortNewest, DocumentSortOldest, DocumentSortName, DocumentSortSize, DocumentSortUploading, "":
	default:
		return fmt.Errorf("unknown sort: %q", q.Sort)
	}

	switch q.State {
	case DocumentStateAny, DocumentStatePending, DocumentStateUploading, DocumentStateUploaded, DocumentStateFailed:
	default:
		return fmt.Errorf("unknown state filter: %q", q.State)
	}

	if q.Skip < 0 {
		return fmt.Errorf("skip cannot be negative")
	}
	return nil
}

// FilestoreSort selects the ordering of filestore listings
type FilestoreSort string

const (
	FilestoreSortNewest FilestoreSort = "newest"
	FilestoreSortOldest FilestoreSort = "oldest"
	FilestoreSortName   FilestoreSort = "name"
)

// FilestoreQuery configures filtered filestore listings.
type FilestoreQuery struct {
	// Search is a case-insensitive substring match on display_name
	Search string

	// Sort selects the ordering (default: newest)
	Sort FilestoreSort

	// Pagination
	Take int
	Skip int
}

// ApplyDefaults fills in default values for unset fields and clamps Take
func (q *FilestoreQuery) ApplyDefaults() {
	if q.Take <= 0 {
		q.Take = DefaultQueryTake
	}
	if q.Take > MaxQueryTake {
		q.Take = MaxQueryTake
	}
	if q.Skip < 0 {
		q.Skip = DefaultQuerySkip
	}
	if q.Sort == "" {
		q.Sort = FilestoreSortNewest
	}
}

// Validate checks that enum fields hold supported values
func (q *FilestoreQuery) Validate() error {
	switch q.Sort {
	case FilestoreSortNewest, FilestoreSortOldest, FilestoreSortName, "":
	default:
		return fmt.Errorf("unknown sort: %q", q.Sort)
	}
	if q.Skip < 0 {
		return fmt.Errorf("skip cannot be negative")
	}
	return nil
}
