package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
)

// PostgresFilestoreRepository implements the FilestoreRepository interface
type PostgresFilestoreRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFilestoreRepository creates a new filestore repository
func NewFilestoreRepository(config *RepositoryConfig) repositories.FilestoreRepository {
	return &PostgresFilestoreRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// appendOwner adds the owner-scope condition to a query that already has a
// WHERE clause. A nil owner addresses rows with no owner.
func appendOwner(query string, args []interface{}, owner *string) (string, []interface{}) {
	if owner == nil {
		return query + " AND owner IS NULL", args
	}
	args = append(args, *owner)
	return fmt.Sprintf("%s AND owner = $%d", query, len(args)), args
}

func scanFilestore(row pgx.Row) (*models.Filestore, error) {
	var store models.Filestore
	err := row.Scan(
		&store.ID,
		&store.Owner,
		&store.Name,
		&store.DisplayName,
		&store.ActiveDocumentsCount,
		&store.PendingDocumentsCount,
		&store.FailedDocumentsCount,
		&store.SizeBytes,
		&store.CreateTime,
		&store.UpdateTime,
		&store.Metadata,
		&store.Error,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// Create creates a new filestore
func (r *PostgresFilestoreRepository) Create(ctx context.Context, store *models.Filestore) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner, display_name, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, r.tables.Filestores)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		store.Owner,
		store.DisplayName,
		store.Metadata,
	).Scan(&store.ID, &store.CreatedAt, &store.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			existingID, queryErr := r.getExistingFilestoreID(ctx, store.Owner, store.DisplayName)
			if queryErr != nil {
				return fmt.Errorf("filestore '%s' already exists: %w", store.DisplayName, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("filestore '%s' already exists", store.DisplayName),
				ResourceType: "filestore",
				ResourceID:   strconv.FormatInt(existingID, 10),
			}
		}
		return fmt.Errorf("create filestore: %w", err)
	}

	return nil
}

// GetByID retrieves a filestore by local ID
func (r *PostgresFilestoreRepository) GetByID(ctx context.Context, id int64, owner *string) (*models.Filestore, error) {
	query := fmt.Sprintf(`
		SELECT id, owner, name, display_name,
		       active_documents_count, pending_documents_count, failed_documents_count, size_bytes,
		       create_time, update_time, metadata, error, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Filestores)
	args := []interface{}{id}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	store, err := scanFilestore(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get filestore: %w", err)
	}

	return store, nil
}

// List retrieves filestores for an owner with pagination and search
func (r *PostgresFilestoreRepository) List(ctx context.Context, owner *string, q *models.FilestoreQuery) ([]models.Filestore, error) {
	q.ApplyDefaults()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filestore query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, owner, name, display_name,
		       active_documents_count, pending_documents_count, failed_documents_count, size_bytes,
		       create_time, update_time, metadata, error, created_at, updated_at
		FROM %s
		WHERE TRUE
	`, r.tables.Filestores)
	var args []interface{}
	query, args = appendOwner(query, args, owner)

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		query += fmt.Sprintf(" AND display_name ILIKE $%d", len(args))
	}

	switch q.Sort {
	case models.FilestoreSortOldest:
		query += " ORDER BY id ASC"
	case models.FilestoreSortName:
		query += " ORDER BY display_name ASC"
	default:
		query += " ORDER BY id DESC"
	}

	args = append(args, q.Take, q.Skip)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list filestores: %w", err)
	}
	defer rows.Close()

	var stores []models.Filestore
	for rows.Next() {
		store, err := scanFilestore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filestore: %w", err)
		}
		stores = append(stores, *store)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filestores: %w", err)
	}

	// Return empty slice instead of nil if no filestores
	if stores == nil {
		stores = []models.Filestore{}
	}

	return stores, nil
}

// SetRemote records the remote resource name and the mirror fields from the
// creation response. The name column is written at most once per row.
func (r *PostgresFilestoreRepository) SetRemote(ctx context.Context, id int64, owner *string, name string, mirror *models.RemoteStoreMirror) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, create_time = $2, update_time = $3,
		    active_documents_count = $4, pending_documents_count = $5,
		    failed_documents_count = $6, size_bytes = $7,
		    error = NULL, updated_at = now()
		WHERE id = $8 AND name IS NULL
	`, r.tables.Filestores)
	args := []interface{}{
		name,
		mirror.CreateTime,
		mirror.UpdateTime,
		mirror.ActiveDocumentsCount,
		mirror.PendingDocumentsCount,
		mirror.FailedDocumentsCount,
		mirror.SizeBytes,
		id,
	}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set filestore remote name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// UpdateRemoteMirror overwrites the aggregate mirror columns with the remote
// store record
func (r *PostgresFilestoreRepository) UpdateRemoteMirror(ctx context.Context, id int64, owner *string, mirror *models.RemoteStoreMirror) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET display_name = $1, create_time = $2, update_time = $3,
		    active_documents_count = $4, pending_documents_count = $5,
		    failed_documents_count = $6, size_bytes = $7, updated_at = now()
		WHERE id = $8
	`, r.tables.Filestores)
	args := []interface{}{
		mirror.DisplayName,
		mirror.CreateTime,
		mirror.UpdateTime,
		mirror.ActiveDocumentsCount,
		mirror.PendingDocumentsCount,
		mirror.FailedDocumentsCount,
		mirror.SizeBytes,
		id,
	}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update filestore mirror: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetError records a remote-create failure on the local row
func (r *PostgresFilestoreRepository) SetError(ctx context.Context, id int64, owner *string, message string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET error = $1, updated_at = now()
		WHERE id = $2
	`, r.tables.Filestores)
	args := []interface{}{message, id}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set filestore error: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a filestore row. Callers remove the store's documents first
// within the same transaction.
func (r *PostgresFilestoreRepository) Delete(ctx context.Context, id int64, owner *string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Filestores)
	args := []interface{}{id}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete filestore: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// getExistingFilestoreID queries for an existing filestore by owner and
// display name
func (r *PostgresFilestoreRepository) getExistingFilestoreID(ctx context.Context, owner *string, displayName string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE display_name = $1
	`, r.tables.Filestores)
	args := []interface{}{displayName}
	query, args = appendOwner(query, args, owner)

	var id int64
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("get existing filestore ID: %w", err)
	}

	return id, nil
}
