package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"searchsync/internal/config"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/domain/services"
	"searchsync/internal/filesearch"
)

// reconcileService implements the ReconcileService interface
type reconcileService struct {
	docRepo   repositories.DocumentRepository
	storeRepo repositories.FilestoreRepository
	search    filesearch.Client
	logger    *slog.Logger
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(
	docRepo repositories.DocumentRepository,
	storeRepo repositories.FilestoreRepository,
	search filesearch.Client,
	logger *slog.Logger,
) services.ReconcileService {
	return &reconcileService{
		docRepo:   docRepo,
		storeRepo: storeRepo,
		search:    search,
		logger:    logger,
	}
}

// Sync diffs the store's local rows against the full remote listing. Remote
// documents are matched to local rows by the hash annotation, falling back to
// the remote resource name; matched rows are overwritten when any mirror
// field drifted. Discrepancy markers land on the state column in a fixed
// order, so a document in several categories ends with the last one written.
func (s *reconcileService) Sync(ctx context.Context, owner *string, filestoreID int64) (*models.SyncReport, error) {
	store, err := s.storeRepo.GetByID(ctx, filestoreID, owner)
	if err != nil {
		return nil, err
	}
	if store.Name == nil {
		return nil, fmt.Errorf("%w: filestore %d has no remote store", domain.ErrValidation, filestoreID)
	}

	logger := s.logger.With("run_id", uuid.New().String(), "filestore_id", filestoreID)

	localDocs, err := s.docRepo.ListByStore(ctx, filestoreID, owner)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string]*models.Document, len(localDocs))
	byName := make(map[string]*models.Document)
	for i := range localDocs {
		doc := &localDocs[i]
		byHash[doc.Hash] = doc
		if doc.Name != nil {
			byName[*doc.Name] = doc
		}
	}

	logger.Info("reconciliation started", "local_documents", len(localDocs))

	remoteDocs, err := filesearch.ListAll(ctx, s.search, *store.Name)
	if err != nil {
		return nil, fmt.Errorf("list remote documents: %w", err)
	}

	var (
		missingFromLocalLabels []string
		missingMetadata        []*models.Document
		missingMetadataLabels  []string
		metadataMismatch       []*models.Document
		metadataMismatchLabels []string
		unmatchedLabels        []string

		seenHashes = make(map[string]bool)
		hashCounts = make(map[string]int)
		matched    int
	)

	for i := range remoteDocs {
		remote := &remoteDocs[i]
		remoteID, remoteHash := extractRemoteIdentity(remote)

		var local *models.Document
		if remoteHash != "" {
			local = byHash[remoteHash]
		} else {
			local = byName[remote.Name]
		}

		// Remote-only documents are reported, never imported.
		if local == nil {
			missingFromLocalLabels = append(missingFromLocalLabels, remoteLabel(remote))
			continue
		}

		// A matched document without both identity annotations cannot be
		// verified further.
		if remoteID == 0 || remoteHash == "" {
			missingMetadata = append(missingMetadata, local)
			missingMetadataLabels = append(missingMetadataLabels, remoteLabel(remote))
			continue
		}

		seenHashes[remoteHash] = true
		hashCounts[remoteHash]++
		matched++

		mirror, err := documentMirror(remote)
		if err != nil {
			return nil, err
		}
		if drifted := local.DiffRemote(mirror); len(drifted) > 0 {
			logger.Debug("overwriting drifted document",
				"document_id", local.ID,
				"fields", drifted,
			)
			unmatchedLabels = append(unmatchedLabels, remoteLabel(remote))
			if err := s.docRepo.OverwriteRemote(ctx, local.ID, owner, mirror); err != nil {
				return nil, err
			}
		}

		if local.ID != remoteID || local.Hash != remoteHash {
			metadataMismatch = append(metadataMismatch, local)
			metadataMismatchLabels = append(metadataMismatchLabels, remoteLabel(remote))
		}
	}

	var missingFromRemote []*models.Document
	for i := range localDocs {
		doc := &localDocs[i]
		if !seenHashes[doc.Hash] {
			missingFromRemote = append(missingFromRemote, doc)
		}
	}

	var duplicates []*models.Document
	for hash, count := range hashCounts {
		if count > 1 {
			if doc := byHash[hash]; doc != nil {
				duplicates = append(duplicates, doc)
			}
		}
	}
	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i].ID < duplicates[j].ID })

	// State writes, in fixed order. Later categories overwrite earlier ones
	// when a document lands in more than one.
	for _, doc := range missingFromRemote {
		if err := s.docRepo.SetState(ctx, doc.ID, owner, models.StateMissingFromRemote); err != nil {
			return nil, err
		}
	}
	for _, doc := range missingMetadata {
		if err := s.docRepo.SetState(ctx, doc.ID, owner, models.StateMissingMetadata); err != nil {
			return nil, err
		}
	}
	for _, doc := range metadataMismatch {
		if err := s.docRepo.SetState(ctx, doc.ID, owner, models.StateMetadataMismatch); err != nil {
			return nil, err
		}
	}
	for _, doc := range duplicates {
		if err := s.docRepo.SetState(ctx, doc.ID, owner, models.StateDuplicateFile); err != nil {
			return nil, err
		}
	}

	report := &models.SyncReport{
		MissingFromLocal:   reportSection(missingFromLocalLabels),
		MissingFromRemote:  reportSection(localLabels(missingFromRemote)),
		MissingMetadata:    reportSection(missingMetadataLabels),
		MetadataMismatch:   reportSection(metadataMismatchLabels),
		UnmatchedFields:    reportSection(unmatchedLabels),
		DuplicateDocuments: reportSection(localLabels(duplicates)),
		Summary: models.SyncSummary{
			LocalDocuments:   len(localDocs),
			RemoteDocuments:  len(remoteDocs),
			MatchedDocuments: matched,
		},
	}

	logger.Info("reconciliation complete",
		"remote_documents", len(remoteDocs),
		"matched", matched,
		"missing_from_local", report.MissingFromLocal.Count,
		"missing_from_remote", report.MissingFromRemote.Count,
		"missing_metadata", report.MissingMetadata.Count,
		"metadata_mismatch", report.MetadataMismatch.Count,
		"unmatched_fields", report.UnmatchedFields.Count,
		"duplicates", report.DuplicateDocuments.Count,
	)

	refreshStoreMirror(ctx, s.search, s.storeRepo, store, logger)

	return report, nil
}

// reportSection caps the example list while keeping the full count.
func reportSection(labels []string) models.ReportSection {
	limit := config.ReportExampleLimit
	if len(labels) < limit {
		limit = len(labels)
	}
	return models.ReportSection{
		Count: len(labels),
		Docs:  append([]string{}, labels[:limit]...),
	}
}

func localLabels(docs []*models.Document) []string {
	labels := make([]string, 0, len(docs))
	for _, doc := range docs {
		labels = append(labels, localLabel(doc))
	}
	return labels
}
