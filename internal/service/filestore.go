package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"searchsync/internal/config"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/domain/services"
	"searchsync/internal/filesearch"
)

// filestoreService implements the FilestoreService interface
type filestoreService struct {
	storeRepo repositories.FilestoreRepository
	docRepo   repositories.DocumentRepository
	search    filesearch.Client
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewFilestoreService creates a new filestore service
func NewFilestoreService(
	storeRepo repositories.FilestoreRepository,
	docRepo repositories.DocumentRepository,
	search filesearch.Client,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.FilestoreService {
	return &filestoreService{
		storeRepo: storeRepo,
		docRepo:   docRepo,
		search:    search,
		txManager: txManager,
		logger:    logger,
	}
}

// Create inserts the local row first, then attempts remote creation. The
// remote outcome lands on the row (resource name and mirror, or the error
// message) instead of deciding the response: the caller always gets the row.
func (s *filestoreService) Create(ctx context.Context, owner *string, req *services.CreateFilestoreRequest) (*models.Filestore, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	store := &models.Filestore{
		Owner:       owner,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Metadata:    req.Metadata,
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, err
	}

	if remote, err := s.search.CreateStore(ctx, store.DisplayName); err != nil {
		s.logger.Error("remote filestore creation failed",
			"id", store.ID,
			"display_name", store.DisplayName,
			"error", err,
		)
		if setErr := s.storeRepo.SetError(ctx, store.ID, owner, err.Error()); setErr != nil {
			return nil, setErr
		}
	} else {
		if err := s.storeRepo.SetRemote(ctx, store.ID, owner, remote.Name, storeMirror(remote)); err != nil {
			return nil, err
		}
	}

	created, err := s.storeRepo.GetByID(ctx, store.ID, owner)
	if err != nil {
		return nil, err
	}

	s.logger.Info("filestore created",
		"id", created.ID,
		"display_name", created.DisplayName,
		"remote", created.Name != nil,
	)
	return created, nil
}

// Get retrieves a filestore by local ID
func (s *filestoreService) Get(ctx context.Context, owner *string, id int64) (*models.Filestore, error) {
	return s.storeRepo.GetByID(ctx, id, owner)
}

// List retrieves filestores with pagination and search
func (s *filestoreService) List(ctx context.Context, owner *string, query *models.FilestoreQuery) ([]models.Filestore, error) {
	query.ApplyDefaults()
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.storeRepo.List(ctx, owner, query)
}

// Delete removes the remote store first (force, tolerating one that is
// already gone), then the store's documents and the row in one transaction.
// A live remote store that cannot be deleted aborts the call so local and
// remote never diverge silently.
func (s *filestoreService) Delete(ctx context.Context, owner *string, id int64) error {
	store, err := s.storeRepo.GetByID(ctx, id, owner)
	if err != nil {
		return err
	}

	if store.Name != nil {
		if err := s.search.DeleteStore(ctx, *store.Name, true); err != nil {
			return fmt.Errorf("delete remote store: %w", err)
		}
	} else {
		s.logger.Debug("filestore has no remote store, skipping remote deletion", "id", id)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.DeleteByStore(txCtx, id, owner); err != nil {
			return err
		}
		return s.storeRepo.Delete(txCtx, id, owner)
	})
	if err != nil {
		return err
	}

	s.logger.Info("filestore deleted", "id", id, "display_name", store.DisplayName)
	return nil
}

func (s *filestoreService) validateCreateRequest(req *services.CreateFilestoreRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DisplayName,
			validation.Required,
			validation.Length(1, config.MaxFilestoreNameLength),
		),
		validation.Field(&req.Metadata, validation.By(validateOptionalJSON)),
	)
}

// validateOptionalJSON accepts nil and any syntactically valid JSON document.
func validateOptionalJSON(value interface{}) error {
	s, ok := value.(*string)
	if !ok || s == nil {
		return nil
	}
	if !json.Valid([]byte(*s)) {
		return fmt.Errorf("must be valid JSON")
	}
	return nil
}
