package repositories

import (
	"context"

	"searchsync/internal/domain/models"
)

// FilestoreRepository defines data access operations for filestores.
// Every lookup is owner-scoped: a nil owner addresses the shared scope
// (rows whose owner column IS NULL).
type FilestoreRepository interface {
	// Create inserts a new filestore and returns it with generated ID and
	// local timestamps
	Create(ctx context.Context, store *models.Filestore) error

	// GetByID retrieves a filestore by local ID
	GetByID(ctx context.Context, id int64, owner *string) (*models.Filestore, error)

	// List retrieves filestores for an owner with pagination and search
	List(ctx context.Context, owner *string, query *models.FilestoreQuery) ([]models.Filestore, error)

	// SetRemote records the remote resource name plus the remote mirror
	// fields after a successful remote creation. The name is written at
	// most once per row.
	SetRemote(ctx context.Context, id int64, owner *string, name string, mirror *models.RemoteStoreMirror) error

	// UpdateRemoteMirror overwrites the aggregate mirror columns from the
	// remote store record
	UpdateRemoteMirror(ctx context.Context, id int64, owner *string, mirror *models.RemoteStoreMirror) error

	// SetError records a remote-create failure on the local row
	SetError(ctx context.Context, id int64, owner *string, message string) error

	// Delete removes the filestore row alone. Callers delete the store's
	// documents first, inside one transaction.
	Delete(ctx context.Context, id int64, owner *string) error
}
