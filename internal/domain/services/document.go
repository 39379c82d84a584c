package services

import (
	"context"

	"searchsync/internal/domain/models"
)

// IngestUpload is one file of a multipart ingest request.
type IngestUpload struct {
	Filename string
	Content  []byte
}

// DocumentService handles document business logic: ingest with
// content-addressed dedup, filtered queries, deletion and upload retry.
type DocumentService interface {
	// Ingest fingerprints each upload, stores its content in the cache,
	// replaces any same-store document with the same hash (delete locally
	// and remotely, then insert) and records pending rows. Kicks the upload
	// worker once after the batch.
	Ingest(ctx context.Context, owner *string, filestoreID int64, category string, uploads []IngestUpload) ([]models.Document, error)

	// Query retrieves documents matching the filter set
	Query(ctx context.Context, owner *string, query *models.DocumentQuery) ([]models.Document, error)

	// Get retrieves a document by local ID
	Get(ctx context.Context, owner *string, id int64) (*models.Document, error)

	// Delete removes the remote copy (an already-deleted remote document is
	// not an error), then the local row
	Delete(ctx context.Context, owner *string, id int64) error

	// Retry clears the upload lifecycle columns so the document becomes
	// pending again, deletes the stale remote copy when one exists, kicks
	// the worker and waits a bounded time for a terminal result. Returns
	// the latest row state either way.
	Retry(ctx context.Context, owner *string, id int64) (*models.Document, error)

	// Categories aggregates document count and size per category for a store
	Categories(ctx context.Context, owner *string, filestoreID int64) ([]models.CategoryCount, error)

	// ListRemote streams the store's full remote listing projected onto the
	// remote-mirror shape (inspection endpoint)
	ListRemote(ctx context.Context, owner *string, filestoreID int64) ([]models.RemoteDocumentMirror, error)
}
