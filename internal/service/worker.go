package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"searchsync/internal/config"
	"searchsync/internal/contentcache"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/domain/services"
	"searchsync/internal/filesearch"
	"searchsync/internal/mimetypes"
)

// errOperationPending drives the operation poll loop; exhausting the poll
// budget while it is still pending becomes ErrUploadTimeout.
var errOperationPending = errors.New("operation still running")

// uploadWorker drains pending documents into the remote index on a single
// background goroutine. Kick during an active run is a no-op; the active run
// picks up anything queued meanwhile on its next batch.
type uploadWorker struct {
	docRepo     repositories.DocumentRepository
	storeRepo   repositories.FilestoreRepository
	search      filesearch.Client
	cache       *contentcache.Cache
	mimes       *mimetypes.Registry
	pollTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	stop    bool
}

// NewUploadWorker creates the upload worker. pollTimeout bounds how long one
// document's remote operation may stay pending before it is failed.
func NewUploadWorker(
	docRepo repositories.DocumentRepository,
	storeRepo repositories.FilestoreRepository,
	search filesearch.Client,
	cache *contentcache.Cache,
	mimes *mimetypes.Registry,
	pollTimeout time.Duration,
	logger *slog.Logger,
) services.UploadWorker {
	return &uploadWorker{
		docRepo:     docRepo,
		storeRepo:   storeRepo,
		search:      search,
		cache:       cache,
		mimes:       mimes,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Kick starts a run when idle and reports whether a new run started.
func (w *uploadWorker) Kick() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return false
	}
	w.running = true
	w.stop = false
	go w.run()
	return true
}

// Running reports whether a run is currently active
func (w *uploadWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stop requests a graceful stop after the current document finishes
func (w *uploadWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stop = true
}

func (w *uploadWorker) stopping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop
}

// run processes pending documents in batches until none remain or a stop is
// requested, then refreshes the aggregate mirror of every store it touched.
func (w *uploadWorker) run() {
	ctx := context.Background()
	logger := w.logger.With("run_id", uuid.New().String())

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		logger.Info("upload worker stopped")
	}()

	logger.Info("upload worker started")

	completed := make(map[int64]bool)
	touched := make(map[int64]*string) // filestore id -> owner scope

	for !w.stopping() {
		docs, err := w.docRepo.GetPending(ctx, config.UploadBatchSize)
		if err != nil {
			logger.Error("failed to fetch pending documents", "error", err)
			break
		}
		if len(docs) == 0 {
			break
		}

		// A document whose status write did not land yet would come back
		// pending; never process the same row twice in one run.
		batch := docs[:0]
		for _, doc := range docs {
			if !completed[doc.ID] {
				batch = append(batch, doc)
			}
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			if w.stopping() {
				break
			}
			doc := &batch[i]
			w.processDocument(ctx, logger, doc)
			completed[doc.ID] = true
			touched[doc.FilestoreID] = doc.Owner
		}
	}

	for storeID, owner := range touched {
		store, err := w.storeRepo.GetByID(ctx, storeID, owner)
		if err != nil {
			logger.Warn("failed to load filestore for mirror refresh",
				"filestore_id", storeID,
				"error", err,
			)
			continue
		}
		refreshStoreMirror(ctx, w.search, w.storeRepo, store, logger)
	}
}

// processDocument uploads one pending document. Failures land on the row's
// error column and never abort the run.
func (w *uploadWorker) processDocument(ctx context.Context, logger *slog.Logger, doc *models.Document) {
	if err := w.uploadDocument(ctx, logger, doc); err != nil {
		logger.Error("document upload failed",
			"document_id", doc.ID,
			"display_name", doc.DisplayName,
			"error", err,
		)
		if setErr := w.docRepo.SetError(ctx, doc.ID, doc.Owner, err.Error()); setErr != nil {
			logger.Error("failed to record document error", "document_id", doc.ID, "error", setErr)
		}
	}
}

func (w *uploadWorker) uploadDocument(ctx context.Context, logger *slog.Logger, doc *models.Document) error {
	store, err := w.storeRepo.GetByID(ctx, doc.FilestoreID, doc.Owner)
	if err != nil {
		return fmt.Errorf("filestore %d: %w", doc.FilestoreID, err)
	}
	if store.Name == nil {
		return fmt.Errorf("filestore %d has no remote store", doc.FilestoreID)
	}

	content, err := w.cache.Read(doc.URL)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrFileNotFound, doc.URL)
		}
		return err
	}

	// started_at goes down before the remote call so a crash mid-upload
	// leaves the document visible as in-flight, not pending.
	if err := w.docRepo.MarkStarted(ctx, doc.ID, doc.Owner, time.Now()); err != nil {
		return err
	}

	req := &filesearch.UploadRequest{
		DisplayName:    doc.DisplayName,
		CustomMetadata: buildCustomMetadata(doc),
		Content:        content,
	}
	// Only extensions in the registry get an explicit MIME type; the remote
	// index rejects several types local detection produces, so everything
	// else goes up untyped for the remote side to classify.
	if mimeType, ok := w.mimes.ForFilename(doc.Filename); ok {
		req.MimeType = mimeType
	}

	logger.Info("uploading document",
		"document_id", doc.ID,
		"display_name", doc.DisplayName,
		"store", *store.Name,
	)

	op, err := w.search.UploadDocument(ctx, *store.Name, req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUpload, err)
	}

	op, err = w.waitForOperation(ctx, op)
	if err != nil {
		return err
	}
	if op.Error != nil {
		return fmt.Errorf("%w: %s", domain.ErrRemoteUpload, op.Error.Message)
	}
	if op.Response == nil || op.Response.DocumentName == "" {
		return fmt.Errorf("%w: operation finished without a document name", domain.ErrRemoteUpload)
	}

	// Success lands in two writes: the upload result immediately, then the
	// authoritative remote record. A failure between them leaves a named,
	// uploaded document that the next reconciliation pass trues up.
	if err := w.docRepo.MarkUploaded(ctx, doc.ID, doc.Owner, time.Now(), op.Response.DocumentName); err != nil {
		return err
	}

	remoteDoc, err := w.search.GetDocument(ctx, op.Response.DocumentName)
	if err != nil {
		return fmt.Errorf("fetch uploaded document: %w", err)
	}
	mirror, err := documentMirror(remoteDoc)
	if err != nil {
		return err
	}
	if err := w.docRepo.OverwriteRemote(ctx, doc.ID, doc.Owner, mirror); err != nil {
		return err
	}

	logger.Info("document uploaded", "document_id", doc.ID, "name", op.Response.DocumentName)
	return nil
}

// waitForOperation polls the long-running operation until it is done or the
// poll budget runs out.
func (w *uploadWorker) waitForOperation(ctx context.Context, op *filesearch.Operation) (*filesearch.Operation, error) {
	if op.Done {
		return op, nil
	}

	current := op
	backoff := retry.WithMaxDuration(w.pollTimeout, retry.NewConstant(config.UploadPollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		polled, err := w.search.PollOperation(ctx, current)
		if err != nil {
			return err
		}
		current = polled
		if !current.Done {
			return retry.RetryableError(errOperationPending)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errOperationPending) {
			return nil, fmt.Errorf("%w after %s", domain.ErrUploadTimeout, w.pollTimeout)
		}
		return nil, err
	}
	return current, nil
}
