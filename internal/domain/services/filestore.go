package services

import (
	"context"

	"searchsync/internal/domain/models"
)

// CreateFilestoreRequest represents a request to create a filestore
type CreateFilestoreRequest struct {
	DisplayName string  `json:"display_name"`
	Metadata    *string `json:"metadata,omitempty"`
}

// FilestoreService defines business logic operations for filestores
type FilestoreService interface {
	// Create inserts the local row first, then attempts remote creation.
	// A remote failure is recorded on the row's error column instead of
	// failing the call; the row always exists afterwards.
	Create(ctx context.Context, owner *string, req *CreateFilestoreRequest) (*models.Filestore, error)

	// Get retrieves a filestore by local ID
	Get(ctx context.Context, owner *string, id int64) (*models.Filestore, error)

	// List retrieves filestores with pagination and search
	List(ctx context.Context, owner *string, query *models.FilestoreQuery) ([]models.Filestore, error)

	// Delete removes the remote store (tolerating an already-deleted one),
	// then the local documents and the store row in one transaction
	Delete(ctx context.Context, owner *string, id int64) error
}
