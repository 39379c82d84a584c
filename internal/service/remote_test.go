package service

import (
	"testing"
	"time"

	"searchsync/internal/domain/models"
	"searchsync/internal/filesearch"
)

func TestExtractRemoteIdentity(t *testing.T) {
	id := float64(42)
	zero := float64(0)
	hash := "abc123"
	empty := ""

	tests := []struct {
		name     string
		meta     []filesearch.CustomMetadata
		wantID   int64
		wantHash string
	}{
		{
			name: "both annotations present",
			meta: []filesearch.CustomMetadata{
				{Key: "id", NumericValue: &id},
				{Key: "hash", StringValue: &hash},
			},
			wantID:   42,
			wantHash: "abc123",
		},
		{
			name:     "no annotations",
			meta:     nil,
			wantID:   0,
			wantHash: "",
		},
		{
			name: "id missing",
			meta: []filesearch.CustomMetadata{
				{Key: "hash", StringValue: &hash},
			},
			wantID:   0,
			wantHash: "abc123",
		},
		{
			name: "zero id treated as absent",
			meta: []filesearch.CustomMetadata{
				{Key: "id", NumericValue: &zero},
				{Key: "hash", StringValue: &hash},
			},
			wantID:   0,
			wantHash: "abc123",
		},
		{
			name: "empty hash treated as absent",
			meta: []filesearch.CustomMetadata{
				{Key: "id", NumericValue: &id},
				{Key: "hash", StringValue: &empty},
			},
			wantID:   42,
			wantHash: "",
		},
		{
			name: "unrelated keys ignored",
			meta: []filesearch.CustomMetadata{
				{Key: "category", StringValue: &hash},
				{Key: "id", NumericValue: &id},
			},
			wantID:   42,
			wantHash: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &filesearch.Document{Name: "docs/x", CustomMetadata: tt.meta}
			gotID, gotHash := extractRemoteIdentity(doc)
			if gotID != tt.wantID || gotHash != tt.wantHash {
				t.Errorf("extractRemoteIdentity() = (%d, %q), want (%d, %q)", gotID, gotHash, tt.wantID, tt.wantHash)
			}
		})
	}
}

func TestBuildCustomMetadata(t *testing.T) {
	category := "papers"
	doc := &models.Document{ID: 7, Hash: "feedface", Category: &category}

	meta := buildCustomMetadata(doc)
	if len(meta) != 3 {
		t.Fatalf("len(meta) = %d, want 3", len(meta))
	}
	if meta[0].Key != "id" || meta[0].NumericValue == nil || *meta[0].NumericValue != 7 {
		t.Errorf("meta[0] = %+v, want id=7", meta[0])
	}
	if meta[1].Key != "hash" || meta[1].StringValue == nil || *meta[1].StringValue != "feedface" {
		t.Errorf("meta[1] = %+v, want hash=feedface", meta[1])
	}
	if meta[2].Key != "category" || meta[2].StringValue == nil || *meta[2].StringValue != "papers" {
		t.Errorf("meta[2] = %+v, want category=papers", meta[2])
	}

	uncategorized := &models.Document{ID: 8, Hash: "cafe"}
	meta = buildCustomMetadata(uncategorized)
	if len(meta) != 2 {
		t.Errorf("len(meta) = %d, want 2 without a category", len(meta))
	}
}

func TestDocLabel(t *testing.T) {
	if got := docLabel("papers", "a.txt"); got != "papers/a.txt" {
		t.Errorf("docLabel() = %q, want papers/a.txt", got)
	}
	if got := docLabel("", "a.txt"); got != "a.txt" {
		t.Errorf("docLabel() = %q, want bare name without a category", got)
	}
}

func TestStoreMirror(t *testing.T) {
	createTime := time.Date(2026, 3, 1, 8, 30, 15, 123456789, time.UTC)
	remote := &filesearch.Store{
		Name:                  "fileSearchStores/m",
		DisplayName:           "Mirrored",
		CreateTime:            &createTime,
		ActiveDocumentsCount:  filesearch.Int64String(12),
		PendingDocumentsCount: filesearch.Int64String(3),
		FailedDocumentsCount:  filesearch.Int64String(1),
		SizeBytes:             filesearch.Int64String(123456),
	}

	mirror := storeMirror(remote)
	if mirror.DisplayName != "Mirrored" {
		t.Errorf("DisplayName = %q", mirror.DisplayName)
	}
	if mirror.ActiveDocumentsCount == nil || *mirror.ActiveDocumentsCount != 12 {
		t.Errorf("ActiveDocumentsCount = %v, want 12", mirror.ActiveDocumentsCount)
	}
	if mirror.PendingDocumentsCount == nil || *mirror.PendingDocumentsCount != 3 {
		t.Errorf("PendingDocumentsCount = %v, want 3", mirror.PendingDocumentsCount)
	}
	if mirror.FailedDocumentsCount == nil || *mirror.FailedDocumentsCount != 1 {
		t.Errorf("FailedDocumentsCount = %v, want 1", mirror.FailedDocumentsCount)
	}
	if mirror.SizeBytes == nil || *mirror.SizeBytes != 123456 {
		t.Errorf("SizeBytes = %v, want 123456", mirror.SizeBytes)
	}
	// Nanoseconds beyond timestamptz precision are dropped.
	if mirror.CreateTime == nil || mirror.CreateTime.Nanosecond() != 123456000 {
		t.Errorf("CreateTime = %v, want microsecond precision", mirror.CreateTime)
	}
	if mirror.UpdateTime != nil {
		t.Errorf("UpdateTime = %v, want nil for an absent remote value", mirror.UpdateTime)
	}
}

func TestDocumentMirror(t *testing.T) {
	hash := "beef"
	updateTime := time.Date(2026, 3, 2, 9, 0, 0, 999, time.UTC)
	remote := &filesearch.Document{
		Name:        "fileSearchStores/m/documents/d",
		DisplayName: "doc.txt",
		MimeType:    "text/plain",
		SizeBytes:   filesearch.Int64String(2048),
		UpdateTime:  &updateTime,
		State:       "STATE_ACTIVE",
		CustomMetadata: []filesearch.CustomMetadata{
			{Key: "hash", StringValue: &hash},
		},
	}

	mirror, err := documentMirror(remote)
	if err != nil {
		t.Fatalf("documentMirror() error = %v", err)
	}
	if mirror.Name != remote.Name {
		t.Errorf("Name = %q", mirror.Name)
	}
	if mirror.SizeBytes == nil || *mirror.SizeBytes != 2048 {
		t.Errorf("SizeBytes = %v, want 2048", mirror.SizeBytes)
	}
	if mirror.MimeType == nil || *mirror.MimeType != "text/plain" {
		t.Errorf("MimeType = %v, want text/plain", mirror.MimeType)
	}
	if mirror.State == nil || *mirror.State != "STATE_ACTIVE" {
		t.Errorf("State = %v, want STATE_ACTIVE", mirror.State)
	}
	if mirror.CustomMetadata == nil {
		t.Fatal("CustomMetadata = nil, want serialized annotations")
	}
	if want := `[{"key":"hash","stringValue":"beef"}]`; *mirror.CustomMetadata != want {
		t.Errorf("CustomMetadata = %q, want %q", *mirror.CustomMetadata, want)
	}
	if mirror.UpdateTime == nil || mirror.UpdateTime.Nanosecond() != 0 {
		t.Errorf("UpdateTime = %v, want sub-microsecond part dropped", mirror.UpdateTime)
	}

	bare := &filesearch.Document{Name: "fileSearchStores/m/documents/bare"}
	mirror, err = documentMirror(bare)
	if err != nil {
		t.Fatalf("documentMirror() error = %v", err)
	}
	if mirror.MimeType != nil || mirror.State != nil || mirror.CustomMetadata != nil {
		t.Errorf("bare mirror = %+v, want nil optional fields", mirror)
	}
}

func TestSerializeCustomMetadata(t *testing.T) {
	got, err := serializeCustomMetadata(nil)
	if err != nil {
		t.Fatalf("serializeCustomMetadata(nil) error = %v", err)
	}
	if got != nil {
		t.Errorf("serializeCustomMetadata(nil) = %q, want nil", *got)
	}

	id := float64(5)
	got, err = serializeCustomMetadata([]filesearch.CustomMetadata{{Key: "id", NumericValue: &id}})
	if err != nil {
		t.Fatalf("serializeCustomMetadata() error = %v", err)
	}
	if got == nil || *got != `[{"key":"id","numericValue":5}]` {
		t.Errorf("serializeCustomMetadata() = %v, want the compact JSON list", got)
	}
}
