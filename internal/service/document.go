package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"searchsync/internal/config"
	"searchsync/internal/contentcache"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/domain/services"
	"searchsync/internal/filesearch"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   repositories.DocumentRepository
	storeRepo repositories.FilestoreRepository
	search    filesearch.Client
	cache     *contentcache.Cache
	worker    services.UploadWorker
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	storeRepo repositories.FilestoreRepository,
	search filesearch.Client,
	cache *contentcache.Cache,
	worker services.UploadWorker,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		storeRepo: storeRepo,
		search:    search,
		cache:     cache,
		worker:    worker,
		txManager: txManager,
		logger:    logger,
	}
}

// Ingest fingerprints and stores each upload, replacing same-content
// documents in the store, then kicks the upload worker once for the batch.
// The first failing file aborts the call; files already ingested stay.
func (s *documentService) Ingest(ctx context.Context, owner *string, filestoreID int64, category string, uploads []services.IngestUpload) ([]models.Document, error) {
	category = strings.TrimSpace(category)
	if len(category) > config.MaxCategoryLength {
		return nil, fmt.Errorf("%w: category exceeds %d characters", domain.ErrValidation, config.MaxCategoryLength)
	}

	if _, err := s.storeRepo.GetByID(ctx, filestoreID, owner); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(uploads))
	for _, upload := range uploads {
		doc, err := s.ingestOne(ctx, owner, filestoreID, category, upload)
		if err != nil {
			return nil, fmt.Errorf("ingest %q: %w", upload.Filename, err)
		}
		docs = append(docs, *doc)
	}

	started := s.worker.Kick()

	s.logger.Info("documents ingested",
		"filestore_id", filestoreID,
		"count", len(docs),
		"worker_started", started,
	)
	return docs, nil
}

func (s *documentService) ingestOne(ctx context.Context, owner *string, filestoreID int64, category string, upload services.IngestUpload) (*models.Document, error) {
	if strings.TrimSpace(upload.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if len(upload.Filename) > config.MaxDisplayNameLength {
		return nil, fmt.Errorf("%w: filename exceeds %d characters", domain.ErrValidation, config.MaxDisplayNameLength)
	}

	hash := contentcache.Fingerprint(upload.Content)
	mimeType := contentcache.ResolveMIME(upload.Filename, upload.Content)
	ext := contentcache.ExtensionFor(upload.Filename, mimeType)
	filename := contentcache.FileName(hash, ext)
	url := contentcache.URLPath(hash, ext)

	// Same content already in this store: drop the old document (remote copy
	// first, best-effort) and re-ingest under the new name.
	existing, err := s.docRepo.FindByStoreAndHash(ctx, filestoreID, hash, owner)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Name != nil {
		if err := s.search.DeleteDocument(ctx, *existing.Name, true); err != nil {
			s.logger.Error("failed to delete replaced document remotely",
				"document_id", existing.ID,
				"name", *existing.Name,
				"error", err,
			)
		}
	}

	info := contentcache.Info{
		Date: time.Now().Unix(),
		URL:  url,
		Size: int64(len(upload.Content)),
		Type: mimeType,
		Name: upload.Filename,
	}
	if err := s.cache.Store(hash, ext, upload.Content, info); err != nil {
		return nil, err
	}

	doc := &models.Document{
		FilestoreID: filestoreID,
		Owner:       owner,
		Filename:    filename,
		URL:         url,
		Hash:        hash,
		Size:        int64(len(upload.Content)),
		DisplayName: upload.Filename,
		MimeType:    &mimeType,
	}
	if category != "" {
		doc.Category = &category
	}

	if existing != nil {
		err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			if err := s.docRepo.Delete(txCtx, existing.ID, owner); err != nil {
				return err
			}
			return s.docRepo.Create(txCtx, doc)
		})
	} else {
		err = s.docRepo.Create(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Query retrieves documents matching the filter set
func (s *documentService) Query(ctx context.Context, owner *string, query *models.DocumentQuery) ([]models.Document, error) {
	query.ApplyDefaults()
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.docRepo.Query(ctx, owner, query)
}

// Get retrieves a document by local ID
func (s *documentService) Get(ctx context.Context, owner *string, id int64) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, id, owner)
}

// Delete removes the remote copy when one exists, then the local row. An
// already-deleted remote document is fine; any other remote failure aborts
// so the row keeps pointing at whatever still exists remotely.
func (s *documentService) Delete(ctx context.Context, owner *string, id int64) error {
	doc, err := s.docRepo.GetByID(ctx, id, owner)
	if err != nil {
		return err
	}

	if doc.Name != nil {
		if err := s.search.DeleteDocument(ctx, *doc.Name, true); err != nil {
			return fmt.Errorf("delete remote document: %w", err)
		}
	}

	if err := s.docRepo.Delete(ctx, id, owner); err != nil {
		return err
	}

	s.logger.Info("document deleted", "id", id, "display_name", doc.DisplayName)
	return nil
}

// Retry re-queues a document for upload and waits a bounded time for the
// worker to finish it. The wait never fails the call: when it runs out the
// caller gets the row in whatever state it reached.
func (s *documentService) Retry(ctx context.Context, owner *string, id int64) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if doc.Name != nil {
		if err := s.search.DeleteDocument(ctx, *doc.Name, true); err != nil {
			s.logger.Error("failed to delete stale remote document",
				"document_id", id,
				"name", *doc.Name,
				"error", err,
			)
		}
	}

	if err := s.docRepo.ResetForRetry(ctx, id, owner); err != nil {
		return nil, err
	}

	started := s.worker.Kick()
	s.logger.Info("document retry queued", "id", id, "worker_started", started)

	latest := doc
	backoff := retry.WithMaxDuration(config.RetryWaitTimeout, retry.NewConstant(config.RetryPollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := s.docRepo.GetByID(ctx, id, owner)
		if err != nil {
			return err
		}
		latest = current
		if current.UploadedAt != nil || current.Error != nil {
			return nil
		}
		if !s.worker.Running() {
			return nil
		}
		return retry.RetryableError(errUploadInFlight)
	})
	if err != nil {
		s.logger.Debug("retry wait ended without terminal state", "id", id, "reason", err)
	}

	return latest, nil
}

// Categories aggregates document count and size per category for a store
func (s *documentService) Categories(ctx context.Context, owner *string, filestoreID int64) ([]models.CategoryCount, error) {
	if _, err := s.storeRepo.GetByID(ctx, filestoreID, owner); err != nil {
		return nil, err
	}
	return s.docRepo.CategoryStats(ctx, filestoreID, owner)
}

// ListRemote pages through the store's full remote listing and projects each
// record onto the local mirror shape.
func (s *documentService) ListRemote(ctx context.Context, owner *string, filestoreID int64) ([]models.RemoteDocumentMirror, error) {
	store, err := s.storeRepo.GetByID(ctx, filestoreID, owner)
	if err != nil {
		return nil, err
	}
	if store.Name == nil {
		return nil, fmt.Errorf("%w: filestore %d has no remote store", domain.ErrValidation, filestoreID)
	}

	remoteDocs, err := filesearch.ListAll(ctx, s.search, *store.Name)
	if err != nil {
		return nil, fmt.Errorf("list remote documents: %w", err)
	}

	mirrors := make([]models.RemoteDocumentMirror, 0, len(remoteDocs))
	for i := range remoteDocs {
		mirror, err := documentMirror(&remoteDocs[i])
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, *mirror)
	}
	return mirrors, nil
}

// errUploadInFlight drives the retry wait loop; it never escapes Retry.
var errUploadInFlight = errors.New("upload still in flight")
