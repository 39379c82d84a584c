package services

import (
	"context"

	"searchsync/internal/domain/models"
)

// ReconcileService diffs one store's local rows against the full remote
// listing, repairs drifted local state and reports the discrepancies.
type ReconcileService interface {
	// Sync runs one reconciliation pass for the store. Reruns with no
	// remote changes are idempotent: same classifications, same writes.
	Sync(ctx context.Context, owner *string, filestoreID int64) (*models.SyncReport, error)
}
