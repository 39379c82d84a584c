package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
)

// documentColumns is the full column list in scan order.
const documentColumns = `id, filestore_id, owner, filename, url, hash, size, display_name,
	       mime_type, category, tags, name, custom_metadata, size_bytes, state,
	       create_time, update_time, started_at, uploaded_at, error, metadata, ref, created_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.FilestoreID,
		&doc.Owner,
		&doc.Filename,
		&doc.URL,
		&doc.Hash,
		&doc.Size,
		&doc.DisplayName,
		&doc.MimeType,
		&doc.Category,
		&doc.Tags,
		&doc.Name,
		&doc.CustomMetadata,
		&doc.SizeBytes,
		&doc.State,
		&doc.CreateTime,
		&doc.UpdateTime,
		&doc.StartedAt,
		&doc.UploadedAt,
		&doc.Error,
		&doc.Metadata,
		&doc.Ref,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (filestore_id, owner, filename, url, hash, size, display_name,
		                mime_type, category, tags, metadata, ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.FilestoreID,
		doc.Owner,
		doc.Filename,
		doc.URL,
		doc.Hash,
		doc.Size,
		doc.DisplayName,
		doc.MimeType,
		doc.Category,
		doc.Tags,
		doc.Metadata,
		doc.Ref,
	).Scan(&doc.ID, &doc.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			existingID, queryErr := r.getExistingDocumentID(ctx, doc.FilestoreID, doc.Hash, doc.Owner)
			if queryErr != nil {
				return fmt.Errorf("document with hash %s already exists in filestore %d: %w",
					doc.Hash, doc.FilestoreID, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document with hash %s already exists in filestore %d", doc.Hash, doc.FilestoreID),
				ResourceType: "document",
				ResourceID:   strconv.FormatInt(existingID, 10),
			}
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by local ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64, owner *string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, documentColumns, r.tables.Documents)
	args := []interface{}{id}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// FindByStoreAndHash returns the document with the given content hash in one
// store. The (filestore_id, hash) unique constraint guarantees at most one.
func (r *PostgresDocumentRepository) FindByStoreAndHash(ctx context.Context, filestoreID int64, hash string, owner *string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE filestore_id = $1 AND hash = $2
	`, documentColumns, r.tables.Documents)
	args := []interface{}{filestoreID, hash}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document with hash %s in filestore %d: %w", hash, filestoreID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find document by hash: %w", err)
	}

	return doc, nil
}

// Query retrieves documents matching the filter set with pagination
func (r *PostgresDocumentRepository) Query(ctx context.Context, owner *string, q *models.DocumentQuery) ([]models.Document, error) {
	q.ApplyDefaults()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE TRUE
	`, documentColumns, r.tables.Documents)
	var args []interface{}
	query, args = appendOwner(query, args, owner)

	if q.FilestoreID != 0 {
		args = append(args, q.FilestoreID)
		query += fmt.Sprintf(" AND filestore_id = $%d", len(args))
	}
	if len(q.IDs) > 0 {
		args = append(args, q.IDs)
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	if q.Hash != "" {
		args = append(args, q.Hash)
		query += fmt.Sprintf(" AND hash = $%d", len(args))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		query += fmt.Sprintf(" AND display_name ILIKE $%d", len(args))
	}

	switch q.State {
	case models.DocumentStatePending:
		query += " AND started_at IS NULL AND uploaded_at IS NULL AND error IS NULL"
	case models.DocumentStateUploading:
		query += " AND started_at IS NOT NULL AND uploaded_at IS NULL AND error IS NULL"
	case models.DocumentStateUploaded:
		query += " AND uploaded_at IS NOT NULL"
	case models.DocumentStateFailed:
		query += " AND error IS NOT NULL"
	}

	switch q.Sort {
	case models.DocumentSortOldest:
		query += " ORDER BY id ASC"
	case models.DocumentSortName:
		query += " ORDER BY display_name ASC"
	case models.DocumentSortSize:
		query += " ORDER BY size DESC"
	case models.DocumentSortUploading:
		// In-flight documents first (oldest first), finished ones after,
		// most recently uploaded first.
		query += ` ORDER BY CASE WHEN uploaded_at IS NULL AND error IS NULL
			THEN created_at ELSE 'infinity'::timestamptz END ASC, uploaded_at DESC`
	default:
		query += " ORDER BY id DESC"
	}

	args = append(args, q.Take, q.Skip)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListByStore retrieves every document of one store, unpaged
func (r *PostgresDocumentRepository) ListByStore(ctx context.Context, filestoreID int64, owner *string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE filestore_id = $1
	`, documentColumns, r.tables.Documents)
	args := []interface{}{filestoreID}
	query, args = appendOwner(query, args, owner)
	query += " ORDER BY id ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents by store: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// GetPending returns up to limit documents that were never started, never
// uploaded and carry no error, across all owners and stores, oldest first.
func (r *PostgresDocumentRepository) GetPending(ctx context.Context, limit int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE started_at IS NULL AND uploaded_at IS NULL AND error IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// MarkStarted stamps started_at just before the remote upload call
func (r *PostgresDocumentRepository) MarkStarted(ctx context.Context, id int64, owner *string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET started_at = $1
		WHERE id = $2
	`, r.tables.Documents)
	args := []interface{}{at, id}
	return r.execScoped(ctx, query, args, owner, id, "mark document started")
}

// MarkUploaded stamps uploaded_at and the remote document name on upload
// success
func (r *PostgresDocumentRepository) MarkUploaded(ctx context.Context, id int64, owner *string, at time.Time, remoteName string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET uploaded_at = $1, name = $2
		WHERE id = $3
	`, r.tables.Documents)
	args := []interface{}{at, remoteName, id}
	return r.execScoped(ctx, query, args, owner, id, "mark document uploaded")
}

// SetError records a terminal upload failure
func (r *PostgresDocumentRepository) SetError(ctx context.Context, id int64, owner *string, message string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET error = $1
		WHERE id = $2
	`, r.tables.Documents)
	args := []interface{}{message, id}
	return r.execScoped(ctx, query, args, owner, id, "set document error")
}

// SetState overwrites the state column (reconciler markers)
func (r *PostgresDocumentRepository) SetState(ctx context.Context, id int64, owner *string, state string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET state = $1
		WHERE id = $2
	`, r.tables.Documents)
	args := []interface{}{state, id}
	return r.execScoped(ctx, query, args, owner, id, "set document state")
}

// OverwriteRemote overwrites the remote mirror columns with the
// authoritative remote record
func (r *PostgresDocumentRepository) OverwriteRemote(ctx context.Context, id int64, owner *string, mirror *models.RemoteDocumentMirror) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, display_name = $2, size_bytes = $3, mime_type = $4,
		    create_time = $5, update_time = $6, state = $7, custom_metadata = $8
		WHERE id = $9
	`, r.tables.Documents)
	args := []interface{}{
		mirror.Name,
		mirror.DisplayName,
		mirror.SizeBytes,
		mirror.MimeType,
		mirror.CreateTime,
		mirror.UpdateTime,
		mirror.State,
		mirror.CustomMetadata,
		id,
	}
	return r.execScoped(ctx, query, args, owner, id, "overwrite document remote mirror")
}

// ResetForRetry clears started_at, uploaded_at and error so the document
// becomes pending again
func (r *PostgresDocumentRepository) ResetForRetry(ctx context.Context, id int64, owner *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET started_at = NULL, uploaded_at = NULL, error = NULL
		WHERE id = $1
	`, r.tables.Documents)
	args := []interface{}{id}
	return r.execScoped(ctx, query, args, owner, id, "reset document for retry")
}

// Delete deletes a document row
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id int64, owner *string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Documents)
	args := []interface{}{id}
	return r.execScoped(ctx, query, args, owner, id, "delete document")
}

// DeleteByStore removes every document of one store
func (r *PostgresDocumentRepository) DeleteByStore(ctx context.Context, filestoreID int64, owner *string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE filestore_id = $1
	`, r.tables.Documents)
	args := []interface{}{filestoreID}
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete documents by store: %w", err)
	}

	return nil
}

// CategoryStats aggregates document count and byte size per category for one
// store, empty category coalesced to ""
func (r *PostgresDocumentRepository) CategoryStats(ctx context.Context, filestoreID int64, owner *string) ([]models.CategoryCount, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(category, '') AS category, COUNT(*), COALESCE(SUM(size), 0)
		FROM %s
		WHERE filestore_id = $1
	`, r.tables.Documents)
	args := []interface{}{filestoreID}
	query, args = appendOwner(query, args, owner)
	query += " GROUP BY COALESCE(category, '') ORDER BY category ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}
	defer rows.Close()

	var stats []models.CategoryCount
	for rows.Next() {
		var stat models.CategoryCount
		if err := rows.Scan(&stat.Category, &stat.Count, &stat.Size); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	if stats == nil {
		stats = []models.CategoryCount{}
	}

	return stats, nil
}

// execScoped runs an owner-scoped write that must hit exactly one row.
func (r *PostgresDocumentRepository) execScoped(ctx context.Context, query string, args []interface{}, owner *string, id int64, op string) error {
	query, args = appendOwner(query, args, owner)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	var documents []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	// Return empty slice instead of nil if no documents
	if documents == nil {
		documents = []models.Document{}
	}

	return documents, nil
}

// getExistingDocumentID queries for an existing document by the
// (filestore_id, hash) unique constraint
func (r *PostgresDocumentRepository) getExistingDocumentID(ctx context.Context, filestoreID int64, hash string, owner *string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE filestore_id = $1 AND hash = $2
	`, r.tables.Documents)
	args := []interface{}{filestoreID, hash}
	query, args = appendOwner(query, args, owner)

	var id int64
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("get existing document ID: %w", err)
	}

	return id, nil
}
