package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/filesearch"
)

// Custom metadata keys stamped onto every upload so reconciliation can match
// remote documents back to local rows.
const (
	metaKeyID       = "id"
	metaKeyHash     = "hash"
	metaKeyCategory = "category"
)

// truncateRemoteTime normalizes remote timestamps to the microsecond
// precision timestamptz stores, so a mirror written and read back compares
// equal.
func truncateRemoteTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	tt := t.Truncate(time.Microsecond)
	return &tt
}

// storeMirror projects a remote store record onto the local mirror columns.
func storeMirror(remote *filesearch.Store) *models.RemoteStoreMirror {
	active := remote.ActiveDocumentsCount.Int64()
	pending := remote.PendingDocumentsCount.Int64()
	failed := remote.FailedDocumentsCount.Int64()
	size := remote.SizeBytes.Int64()
	return &models.RemoteStoreMirror{
		DisplayName:           remote.DisplayName,
		CreateTime:            truncateRemoteTime(remote.CreateTime),
		UpdateTime:            truncateRemoteTime(remote.UpdateTime),
		ActiveDocumentsCount:  &active,
		PendingDocumentsCount: &pending,
		FailedDocumentsCount:  &failed,
		SizeBytes:             &size,
	}
}

// documentMirror projects a remote document record onto the local mirror
// columns, serializing custom metadata for the custom_metadata column.
func documentMirror(remote *filesearch.Document) (*models.RemoteDocumentMirror, error) {
	meta, err := serializeCustomMetadata(remote.CustomMetadata)
	if err != nil {
		return nil, err
	}

	size := remote.SizeBytes.Int64()
	mirror := &models.RemoteDocumentMirror{
		Name:           remote.Name,
		DisplayName:    remote.DisplayName,
		SizeBytes:      &size,
		CreateTime:     truncateRemoteTime(remote.CreateTime),
		UpdateTime:     truncateRemoteTime(remote.UpdateTime),
		CustomMetadata: meta,
	}
	if remote.MimeType != "" {
		mimeType := remote.MimeType
		mirror.MimeType = &mimeType
	}
	if remote.State != "" {
		state := remote.State
		mirror.State = &state
	}
	return mirror, nil
}

func serializeCustomMetadata(meta []filesearch.CustomMetadata) (*string, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serialize custom metadata: %w", err)
	}
	s := string(data)
	return &s, nil
}

// buildCustomMetadata assembles the upload annotations: the local id as a
// numeric value, the content hash as a string, and the category when the
// document has one.
func buildCustomMetadata(doc *models.Document) []filesearch.CustomMetadata {
	id := float64(doc.ID)
	hash := doc.Hash
	meta := []filesearch.CustomMetadata{
		{Key: metaKeyID, NumericValue: &id},
		{Key: metaKeyHash, StringValue: &hash},
	}
	if doc.Category != nil && *doc.Category != "" {
		category := *doc.Category
		meta = append(meta, filesearch.CustomMetadata{Key: metaKeyCategory, StringValue: &category})
	}
	return meta
}

// extractRemoteIdentity pulls the local id and content hash a previous upload
// stamped onto a remote document. Zero id / empty hash mean the annotation is
// absent.
func extractRemoteIdentity(doc *filesearch.Document) (int64, string) {
	var id int64
	var hash string
	for _, m := range doc.CustomMetadata {
		switch {
		case m.Key == metaKeyID && m.NumericValue != nil && *m.NumericValue != 0:
			id = int64(*m.NumericValue)
		case m.Key == metaKeyHash && m.StringValue != nil && *m.StringValue != "":
			hash = *m.StringValue
		}
	}
	return id, hash
}

func remoteCategory(doc *filesearch.Document) string {
	for _, m := range doc.CustomMetadata {
		if m.Key == metaKeyCategory && m.StringValue != nil && *m.StringValue != "" {
			return *m.StringValue
		}
	}
	return ""
}

// docLabel formats the "category/displayName" label used in sync reports.
func docLabel(category, displayName string) string {
	if category == "" {
		return displayName
	}
	return category + "/" + displayName
}

func localLabel(doc *models.Document) string {
	category := ""
	if doc.Category != nil {
		category = *doc.Category
	}
	return docLabel(category, doc.DisplayName)
}

func remoteLabel(doc *filesearch.Document) string {
	return docLabel(remoteCategory(doc), doc.DisplayName)
}

// refreshStoreMirror pulls the remote store record and overwrites the local
// aggregate mirror. Best-effort: failures are logged and swallowed so one
// store's refresh never aborts another's.
func refreshStoreMirror(ctx context.Context, search filesearch.Client, storeRepo repositories.FilestoreRepository, store *models.Filestore, logger *slog.Logger) {
	if store.Name == nil {
		return
	}

	remote, err := search.GetStore(ctx, *store.Name)
	if err != nil {
		logger.Warn("failed to refresh filestore mirror",
			"filestore_id", store.ID,
			"name", *store.Name,
			"error", err,
		)
		return
	}

	if err := storeRepo.UpdateRemoteMirror(ctx, store.ID, store.Owner, storeMirror(remote)); err != nil {
		logger.Warn("failed to persist filestore mirror",
			"filestore_id", store.ID,
			"error", err,
		)
	}
}
