package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"searchsync/internal/contentcache"
	"searchsync/internal/domain"
	"searchsync/internal/domain/models"
	"searchsync/internal/domain/repositories"
	"searchsync/internal/filesearch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func ownerEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// memFilestoreRepo is an in-memory FilestoreRepository.
type memFilestoreRepo struct {
	mu            sync.Mutex
	nextID        int64
	stores        map[int64]*models.Filestore
	mirrorUpdates int
}

func newMemFilestoreRepo() *memFilestoreRepo {
	return &memFilestoreRepo{stores: make(map[int64]*models.Filestore)}
}

func (r *memFilestoreRepo) Create(ctx context.Context, store *models.Filestore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	store.ID = r.nextID
	now := time.Now()
	store.CreatedAt = now
	store.UpdatedAt = now
	cp := *store
	r.stores[store.ID] = &cp
	return nil
}

func (r *memFilestoreRepo) GetByID(ctx context.Context, id int64, owner *string) (*models.Filestore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[id]
	if !ok || !ownerEq(store.Owner, owner) {
		return nil, fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}
	cp := *store
	return &cp, nil
}

func (r *memFilestoreRepo) List(ctx context.Context, owner *string, query *models.FilestoreQuery) ([]models.Filestore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Filestore{}
	for _, store := range r.stores {
		if ownerEq(store.Owner, owner) {
			out = append(out, *store)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFilestoreRepo) SetRemote(ctx context.Context, id int64, owner *string, name string, mirror *models.RemoteStoreMirror) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[id]
	if !ok || !ownerEq(store.Owner, owner) || store.Name != nil {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}
	n := name
	store.Name = &n
	store.Error = nil
	applyStoreMirror(store, mirror)
	return nil
}

func (r *memFilestoreRepo) UpdateRemoteMirror(ctx context.Context, id int64, owner *string, mirror *models.RemoteStoreMirror) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[id]
	if !ok || !ownerEq(store.Owner, owner) {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}
	r.mirrorUpdates++
	applyStoreMirror(store, mirror)
	return nil
}

func (r *memFilestoreRepo) SetError(ctx context.Context, id int64, owner *string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[id]
	if !ok || !ownerEq(store.Owner, owner) {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}
	store.Error = &message
	return nil
}

func (r *memFilestoreRepo) Delete(ctx context.Context, id int64, owner *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[id]
	if !ok || !ownerEq(store.Owner, owner) {
		return fmt.Errorf("filestore %d: %w", id, domain.ErrNotFound)
	}
	delete(r.stores, id)
	return nil
}

func (r *memFilestoreRepo) mirrorUpdateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mirrorUpdates
}

func applyStoreMirror(store *models.Filestore, mirror *models.RemoteStoreMirror) {
	store.DisplayName = mirror.DisplayName
	store.CreateTime = mirror.CreateTime
	store.UpdateTime = mirror.UpdateTime
	store.ActiveDocumentsCount = mirror.ActiveDocumentsCount
	store.PendingDocumentsCount = mirror.PendingDocumentsCount
	store.FailedDocumentsCount = mirror.FailedDocumentsCount
	store.SizeBytes = mirror.SizeBytes
}

type stateWrite struct {
	id    int64
	state string
}

// memDocumentRepo is an in-memory DocumentRepository. It records state
// writes and mirror overwrites so tests can assert on write order.
type memDocumentRepo struct {
	mu          sync.Mutex
	nextID      int64
	docs        map[int64]*models.Document
	stateWrites []stateWrite
	overwrites  []int64

	// failCreateAfter makes Create fail once this many rows exist (0 = never)
	failCreateAfter int

	// stalePendingReads makes GetPending ignore the lifecycle columns,
	// simulating a lagging read replica that keeps returning finished rows
	stalePendingReads bool
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[int64]*models.Document)}
}

func (r *memDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateAfter > 0 && len(r.docs) >= r.failCreateAfter {
		return errors.New("insert failed")
	}
	for _, d := range r.docs {
		if d.FilestoreID == doc.FilestoreID && d.Hash == doc.Hash && ownerEq(d.Owner, doc.Owner) {
			return &domain.ConflictError{
				Message:      "document with this content already exists",
				ResourceType: "document",
				ResourceID:   strconv.FormatInt(d.ID, 10),
			}
		}
	}
	r.nextID++
	doc.ID = r.nextID
	doc.CreatedAt = time.Now()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memDocumentRepo) GetByID(ctx context.Context, id int64, owner *string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return nil, err
	}
	cp := *doc
	return &cp, nil
}

func (r *memDocumentRepo) FindByStoreAndHash(ctx context.Context, filestoreID int64, hash string, owner *string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.FilestoreID == filestoreID && doc.Hash == hash && ownerEq(doc.Owner, owner) {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("document with hash %s: %w", hash, domain.ErrNotFound)
}

func (r *memDocumentRepo) Query(ctx context.Context, owner *string, query *models.DocumentQuery) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Document{}
	for _, doc := range r.docs {
		if !ownerEq(doc.Owner, owner) {
			continue
		}
		if query.FilestoreID != 0 && doc.FilestoreID != query.FilestoreID {
			continue
		}
		if query.Hash != "" && doc.Hash != query.Hash {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memDocumentRepo) ListByStore(ctx context.Context, filestoreID int64, owner *string) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Document{}
	for _, doc := range r.docs {
		if doc.FilestoreID == filestoreID && ownerEq(doc.Owner, owner) {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDocumentRepo) GetPending(ctx context.Context, limit int) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Document{}
	for _, doc := range r.docs {
		if r.stalePendingReads || doc.IsPending() {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDocumentRepo) MarkStarted(ctx context.Context, id int64, owner *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	doc.StartedAt = &at
	return nil
}

func (r *memDocumentRepo) MarkUploaded(ctx context.Context, id int64, owner *string, at time.Time, remoteName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	doc.UploadedAt = &at
	name := remoteName
	doc.Name = &name
	return nil
}

func (r *memDocumentRepo) SetError(ctx context.Context, id int64, owner *string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	doc.Error = &message
	return nil
}

func (r *memDocumentRepo) SetState(ctx context.Context, id int64, owner *string, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	s := state
	doc.State = &s
	r.stateWrites = append(r.stateWrites, stateWrite{id: id, state: state})
	return nil
}

func (r *memDocumentRepo) OverwriteRemote(ctx context.Context, id int64, owner *string, mirror *models.RemoteDocumentMirror) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	name := mirror.Name
	doc.Name = &name
	doc.DisplayName = mirror.DisplayName
	doc.SizeBytes = mirror.SizeBytes
	doc.MimeType = mirror.MimeType
	doc.CreateTime = mirror.CreateTime
	doc.UpdateTime = mirror.UpdateTime
	doc.State = mirror.State
	doc.CustomMetadata = mirror.CustomMetadata
	r.overwrites = append(r.overwrites, id)
	return nil
}

func (r *memDocumentRepo) ResetForRetry(ctx context.Context, id int64, owner *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.get(id, owner)
	if err != nil {
		return err
	}
	doc.StartedAt = nil
	doc.UploadedAt = nil
	doc.Error = nil
	return nil
}

func (r *memDocumentRepo) Delete(ctx context.Context, id int64, owner *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(id, owner); err != nil {
		return err
	}
	delete(r.docs, id)
	return nil
}

func (r *memDocumentRepo) DeleteByStore(ctx context.Context, filestoreID int64, owner *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, doc := range r.docs {
		if doc.FilestoreID == filestoreID && ownerEq(doc.Owner, owner) {
			delete(r.docs, id)
		}
	}
	return nil
}

func (r *memDocumentRepo) CategoryStats(ctx context.Context, filestoreID int64, owner *string) ([]models.CategoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCategory := make(map[string]*models.CategoryCount)
	for _, doc := range r.docs {
		if doc.FilestoreID != filestoreID || !ownerEq(doc.Owner, owner) {
			continue
		}
		category := ""
		if doc.Category != nil {
			category = *doc.Category
		}
		stat, ok := byCategory[category]
		if !ok {
			stat = &models.CategoryCount{Category: category}
			byCategory[category] = stat
		}
		stat.Count++
		stat.Size += doc.Size
	}
	out := []models.CategoryCount{}
	for _, stat := range byCategory {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// get returns the live row; callers hold the mutex.
func (r *memDocumentRepo) get(id int64, owner *string) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok || !ownerEq(doc.Owner, owner) {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (r *memDocumentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *memDocumentRepo) states() []stateWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateWrite{}, r.stateWrites...)
}

func (r *memDocumentRepo) overwriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.overwrites)
}

// fakeSearchClient simulates the remote index. Successful uploads complete
// immediately and register a matching remote document; flags flip individual
// calls into failure or never-finishing modes.
type fakeSearchClient struct {
	mu sync.Mutex

	stores    map[string]*filesearch.Store
	documents map[string]*filesearch.Document
	listing   []filesearch.Document

	createStoreErr error
	getStoreErr    error
	uploadErr      error
	listErr        error
	deleteDocErr   error
	deleteStoreErr error

	// opPending makes operations never finish; opError completes them failed
	opPending bool
	opError   *filesearch.OperationError

	uploads       []*filesearch.UploadRequest
	uploadStores  []string
	deletedDocs   []string
	deletedStores []string
	getStoreCalls int

	// uploadBegan/uploadGate serialize test and worker for stop tests
	uploadBegan chan struct{}
	uploadGate  chan struct{}
}

func newFakeSearchClient() *fakeSearchClient {
	return &fakeSearchClient{
		stores:    make(map[string]*filesearch.Store),
		documents: make(map[string]*filesearch.Document),
	}
}

func (f *fakeSearchClient) CreateStore(ctx context.Context, displayName string) (*filesearch.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createStoreErr != nil {
		return nil, f.createStoreErr
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	store := &filesearch.Store{
		Name:        "fileSearchStores/store-" + strconv.Itoa(len(f.stores)+1),
		DisplayName: displayName,
		CreateTime:  &now,
		UpdateTime:  &now,
	}
	f.stores[store.Name] = store
	return store, nil
}

func (f *fakeSearchClient) GetStore(ctx context.Context, name string) (*filesearch.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getStoreCalls++
	if f.getStoreErr != nil {
		return nil, f.getStoreErr
	}
	store, ok := f.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, name)
	}
	cp := *store
	return &cp, nil
}

func (f *fakeSearchClient) DeleteStore(ctx context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteStoreErr != nil {
		return f.deleteStoreErr
	}
	f.deletedStores = append(f.deletedStores, name)
	delete(f.stores, name)
	return nil
}

func (f *fakeSearchClient) UploadDocument(ctx context.Context, storeName string, req *filesearch.UploadRequest) (*filesearch.Operation, error) {
	if f.uploadBegan != nil {
		f.uploadBegan <- struct{}{}
	}
	if f.uploadGate != nil {
		<-f.uploadGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, req)
	f.uploadStores = append(f.uploadStores, storeName)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.opPending {
		return &filesearch.Operation{Name: "operations/pending"}, nil
	}
	if f.opError != nil {
		return &filesearch.Operation{Name: "operations/failed", Done: true, Error: f.opError}, nil
	}

	docName := fmt.Sprintf("%s/documents/doc-%d", storeName, len(f.uploads))
	now := time.Now().UTC().Truncate(time.Microsecond)
	f.documents[docName] = &filesearch.Document{
		Name:           docName,
		DisplayName:    req.DisplayName,
		MimeType:       req.MimeType,
		SizeBytes:      filesearch.Int64String(len(req.Content)),
		CreateTime:     &now,
		UpdateTime:     &now,
		State:          "STATE_ACTIVE",
		CustomMetadata: req.CustomMetadata,
	}
	return &filesearch.Operation{
		Name:     "operations/done",
		Done:     true,
		Response: &filesearch.UploadResponse{DocumentName: docName},
	}, nil
}

func (f *fakeSearchClient) PollOperation(ctx context.Context, op *filesearch.Operation) (*filesearch.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opPending {
		return &filesearch.Operation{Name: op.Name}, nil
	}
	return op, nil
}

func (f *fakeSearchClient) GetDocument(ctx context.Context, name string) (*filesearch.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, name)
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeSearchClient) ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*filesearch.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := 0
	if pageToken != "" {
		start, _ = strconv.Atoi(pageToken)
	}
	end := start + pageSize
	if pageSize <= 0 || end > len(f.listing) {
		end = len(f.listing)
	}
	page := &filesearch.DocumentPage{
		Documents: append([]filesearch.Document{}, f.listing[start:end]...),
	}
	if end < len(f.listing) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeSearchClient) DeleteDocument(ctx context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteDocErr != nil {
		return f.deleteDocErr
	}
	f.deletedDocs = append(f.deletedDocs, name)
	delete(f.documents, name)
	return nil
}

func (f *fakeSearchClient) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeSearchClient) deletedDocNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deletedDocs...)
}

// seedRemoteStore registers a remote store record so GetStore succeeds.
func (f *fakeSearchClient) seedRemoteStore(name, displayName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	f.stores[name] = &filesearch.Store{
		Name:        name,
		DisplayName: displayName,
		CreateTime:  &now,
		UpdateTime:  &now,
	}
}

// fakeTxManager runs the function directly; the in-memory repos have no
// transaction semantics to coordinate.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// fakeUploadWorker records kicks for services that trigger the real worker.
// onKick, when set, runs synchronously inside Kick so tests can simulate a
// run finishing before the caller polls.
type fakeUploadWorker struct {
	mu      sync.Mutex
	kicks   int
	running bool
	onKick  func()
}

func (w *fakeUploadWorker) Kick() bool {
	w.mu.Lock()
	w.kicks++
	hook := w.onKick
	started := !w.running
	w.mu.Unlock()
	if hook != nil {
		hook()
	}
	return started
}

func (w *fakeUploadWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *fakeUploadWorker) Stop() {}

func (w *fakeUploadWorker) kickCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kicks
}

// seedStore creates a local filestore, optionally linked to a remote store
// registered on the fake client.
func seedStore(t *testing.T, repo *memFilestoreRepo, search *fakeSearchClient, owner *string, displayName, remoteName string) *models.Filestore {
	t.Helper()
	ctx := context.Background()

	store := &models.Filestore{Owner: owner, DisplayName: displayName}
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if remoteName != "" {
		if search != nil {
			search.seedRemoteStore(remoteName, displayName)
		}
		mirror := &models.RemoteStoreMirror{DisplayName: displayName}
		if err := repo.SetRemote(ctx, store.ID, owner, remoteName, mirror); err != nil {
			t.Fatalf("SetRemote() error = %v", err)
		}
	}

	out, err := repo.GetByID(ctx, store.ID, owner)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	return out
}

// seedPendingDocument inserts a pending document row whose content sits in
// the cache, mirroring what an ingest would have produced.
func seedPendingDocument(t *testing.T, repo *memDocumentRepo, cache *contentcache.Cache, store *models.Filestore, displayName string, content []byte, category string) *models.Document {
	t.Helper()
	ctx := context.Background()

	hash := contentcache.Fingerprint(content)
	mimeType := contentcache.ResolveMIME(displayName, content)
	ext := contentcache.ExtensionFor(displayName, mimeType)

	doc := &models.Document{
		FilestoreID: store.ID,
		Owner:       store.Owner,
		Filename:    contentcache.FileName(hash, ext),
		URL:         contentcache.URLPath(hash, ext),
		Hash:        hash,
		Size:        int64(len(content)),
		DisplayName: displayName,
		MimeType:    &mimeType,
	}
	if category != "" {
		doc.Category = &category
	}

	if cache != nil {
		info := contentcache.Info{
			Date: time.Now().Unix(),
			URL:  doc.URL,
			Size: doc.Size,
			Type: mimeType,
			Name: displayName,
		}
		if err := cache.Store(hash, ext, content, info); err != nil {
			t.Fatalf("cache.Store() error = %v", err)
		}
	}

	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}
