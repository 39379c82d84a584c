package repositories

import (
	"context"
	"time"

	"searchsync/internal/domain/models"
)

// DocumentRepository defines data access operations for documents. Owner
// scoping follows the filestore convention: nil owner = shared scope.
type DocumentRepository interface {
	// Create inserts a new document and returns it with generated ID and
	// created_at
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by local ID
	GetByID(ctx context.Context, id int64, owner *string) (*models.Document, error)

	// FindByStoreAndHash returns the document with the given content hash in
	// one store, or ErrNotFound. Used by the delete-then-replace dedup policy.
	FindByStoreAndHash(ctx context.Context, filestoreID int64, hash string, owner *string) (*models.Document, error)

	// Query retrieves documents matching the filter set with pagination
	Query(ctx context.Context, owner *string, query *models.DocumentQuery) ([]models.Document, error)

	// ListByStore retrieves every document of one store, unpaged. The
	// reconciler needs the complete local set.
	ListByStore(ctx context.Context, filestoreID int64, owner *string) ([]models.Document, error)

	// GetPending returns up to limit documents that were never started,
	// never uploaded and carry no error, across all owners and stores,
	// oldest first.
	GetPending(ctx context.Context, limit int) ([]models.Document, error)

	// MarkStarted stamps started_at just before the remote upload call
	MarkStarted(ctx context.Context, id int64, owner *string, at time.Time) error

	// MarkUploaded stamps uploaded_at and the remote document name on
	// upload success
	MarkUploaded(ctx context.Context, id int64, owner *string, at time.Time, remoteName string) error

	// SetError records a terminal upload failure
	SetError(ctx context.Context, id int64, owner *string, message string) error

	// SetState overwrites the state column (reconciler markers)
	SetState(ctx context.Context, id int64, owner *string, state string) error

	// OverwriteRemote overwrites the remote mirror columns with the
	// authoritative remote record
	OverwriteRemote(ctx context.Context, id int64, owner *string, mirror *models.RemoteDocumentMirror) error

	// ResetForRetry clears started_at, uploaded_at and error so the
	// document becomes pending again
	ResetForRetry(ctx context.Context, id int64, owner *string) error

	// Delete removes a document row
	Delete(ctx context.Context, id int64, owner *string) error

	// DeleteByStore removes every document of one store (filestore cascade)
	DeleteByStore(ctx context.Context, filestoreID int64, owner *string) error

	// CategoryStats aggregates document count and byte size per category for
	// one store, empty category coalesced to ""
	CategoryStats(ctx context.Context, filestoreID int64, owner *string) ([]models.CategoryCount, error)
}
