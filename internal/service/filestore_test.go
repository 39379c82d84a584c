package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/services"
)

type filestoreFixture struct {
	storeRepo *memFilestoreRepo
	docRepo   *memDocumentRepo
	search    *fakeSearchClient
	svc       services.FilestoreService
}

func newFilestoreFixture(t *testing.T) *filestoreFixture {
	t.Helper()
	f := &filestoreFixture{
		storeRepo: newMemFilestoreRepo(),
		docRepo:   newMemDocumentRepo(),
		search:    newFakeSearchClient(),
	}
	f.svc = NewFilestoreService(f.storeRepo, f.docRepo, f.search, fakeTxManager{}, testLogger())
	return f
}

func TestFilestoreService_Create(t *testing.T) {
	t.Run("creates the local row and the remote store", func(t *testing.T) {
		f := newFilestoreFixture(t)

		store, err := f.svc.Create(context.Background(), nil, &services.CreateFilestoreRequest{
			DisplayName: "  Research Library  ",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if store.ID == 0 {
			t.Error("ID not assigned")
		}
		if store.DisplayName != "Research Library" {
			t.Errorf("DisplayName = %q, want trimmed", store.DisplayName)
		}
		if store.Name == nil {
			t.Fatal("remote name not recorded")
		}
		if store.Error != nil {
			t.Errorf("Error = %q, want none", *store.Error)
		}
		if store.CreateTime == nil {
			t.Error("remote create time not mirrored")
		}
	})

	t.Run("records a remote failure on the row", func(t *testing.T) {
		f := newFilestoreFixture(t)
		f.search.createStoreErr = errors.New("quota exhausted")

		store, err := f.svc.Create(context.Background(), nil, &services.CreateFilestoreRequest{
			DisplayName: "Doomed",
		})
		if err != nil {
			t.Fatalf("Create() error = %v, want the row despite remote failure", err)
		}
		if store.Name != nil {
			t.Errorf("Name = %q, want none", *store.Name)
		}
		if store.Error == nil || !strings.Contains(*store.Error, "quota exhausted") {
			t.Errorf("Error = %v, want the remote failure recorded", store.Error)
		}
	})

	t.Run("validation", func(t *testing.T) {
		f := newFilestoreFixture(t)
		tests := []struct {
			name string
			req  *services.CreateFilestoreRequest
		}{
			{name: "empty display name", req: &services.CreateFilestoreRequest{DisplayName: ""}},
			{name: "oversized display name", req: &services.CreateFilestoreRequest{DisplayName: strings.Repeat("x", 256)}},
			{name: "malformed metadata", req: &services.CreateFilestoreRequest{DisplayName: "ok", Metadata: strPtr("{not json")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := f.svc.Create(context.Background(), nil, tt.req); !errors.Is(err, domain.ErrValidation) {
					t.Errorf("Create() error = %v, want ErrValidation", err)
				}
			})
		}
	})

	t.Run("owner scoping", func(t *testing.T) {
		f := newFilestoreFixture(t)
		owner := strPtr("user-a")

		store, err := f.svc.Create(context.Background(), owner, &services.CreateFilestoreRequest{DisplayName: "Private"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := f.svc.Get(context.Background(), nil, store.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get() with nil owner error = %v, want ErrNotFound", err)
		}
		if _, err := f.svc.Get(context.Background(), owner, store.ID); err != nil {
			t.Errorf("Get() with owner error = %v", err)
		}
	})
}

func TestFilestoreService_Delete(t *testing.T) {
	t.Run("removes remote store, documents and row", func(t *testing.T) {
		f := newFilestoreFixture(t)
		store := seedStore(t, f.storeRepo, f.search, nil, "Full Store", "fileSearchStores/full-store")
		seedPendingDocument(t, f.docRepo, nil, store, "one.txt", []byte("doc one"), "")
		seedPendingDocument(t, f.docRepo, nil, store, "two.txt", []byte("doc two"), "")

		if err := f.svc.Delete(context.Background(), nil, store.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		if len(f.search.deletedStores) != 1 || f.search.deletedStores[0] != "fileSearchStores/full-store" {
			t.Errorf("deleted stores = %v", f.search.deletedStores)
		}
		if got := f.docRepo.count(); got != 0 {
			t.Errorf("documents remaining = %d, want 0", got)
		}
		if _, err := f.storeRepo.GetByID(context.Background(), store.ID, nil); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("store lookup error = %v, want ErrNotFound", err)
		}
	})

	t.Run("aborts when the remote delete fails", func(t *testing.T) {
		f := newFilestoreFixture(t)
		store := seedStore(t, f.storeRepo, f.search, nil, "Sticky", "fileSearchStores/sticky")
		seedPendingDocument(t, f.docRepo, nil, store, "kept.txt", []byte("survives"), "")
		f.search.deleteStoreErr = errors.New("remote unavailable")

		if err := f.svc.Delete(context.Background(), nil, store.ID); err == nil {
			t.Fatal("Delete() error = nil, want remote failure")
		}
		if _, err := f.storeRepo.GetByID(context.Background(), store.ID, nil); err != nil {
			t.Errorf("store removed despite remote failure: %v", err)
		}
		if got := f.docRepo.count(); got != 1 {
			t.Errorf("documents remaining = %d, want 1", got)
		}
	})

	t.Run("skips remote for a store that never got one", func(t *testing.T) {
		f := newFilestoreFixture(t)
		store := seedStore(t, f.storeRepo, f.search, nil, "Local Only", "")

		if err := f.svc.Delete(context.Background(), nil, store.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if len(f.search.deletedStores) != 0 {
			t.Errorf("deleted stores = %v, want none", f.search.deletedStores)
		}
	})
}

func TestFilestoreService_List(t *testing.T) {
	f := newFilestoreFixture(t)
	seedStore(t, f.storeRepo, f.search, nil, "First", "")
	seedStore(t, f.storeRepo, f.search, nil, "Second", "")
	seedStore(t, f.storeRepo, f.search, strPtr("someone-else"), "Hidden", "")

	stores, err := f.svc.List(context.Background(), nil, &models.FilestoreQuery{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(stores) != 2 {
		t.Errorf("len(stores) = %d, want 2 owner-scoped rows", len(stores))
	}

	_, err = f.svc.List(context.Background(), nil, &models.FilestoreQuery{Sort: "sideways"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("List() error = %v, want ErrValidation for unknown sort", err)
	}
}
