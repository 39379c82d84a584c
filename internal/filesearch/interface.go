package filesearch

import (
	"context"
)

// Client is the remote file-search index contract consumed by the services.
// The HTTP implementation lives in this package; tests substitute mocks.
type Client interface {
	// CreateStore creates a remote store with the given display name
	CreateStore(ctx context.Context, displayName string) (*Store, error)

	// GetStore fetches a store by resource name
	GetStore(ctx context.Context, name string) (*Store, error)

	// DeleteStore removes a store. An already-deleted store is not an error.
	DeleteStore(ctx context.Context, name string, force bool) error

	// UploadDocument submits a document upload and returns the long-running
	// operation tracking it
	UploadDocument(ctx context.Context, storeName string, req *UploadRequest) (*Operation, error)

	// PollOperation re-fetches an operation's current state. Idempotent,
	// safe to call repeatedly.
	PollOperation(ctx context.Context, op *Operation) (*Operation, error)

	// GetDocument fetches a document by resource name
	GetDocument(ctx context.Context, name string) (*Document, error)

	// ListDocuments fetches one page of a store's document listing. An empty
	// pageToken starts from the beginning; an empty NextPageToken in the
	// result means the listing is exhausted.
	ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*DocumentPage, error)

	// DeleteDocument removes a document. An already-deleted document is not
	// an error.
	DeleteDocument(ctx context.Context, name string, force bool) error
}

// ListAll drains every page of a store's document listing.
func ListAll(ctx context.Context, c Client, storeName string) ([]Document, error) {
	var docs []Document
	pageToken := ""
	for {
		page, err := c.ListDocuments(ctx, storeName, 100, pageToken)
		if err != nil {
			return nil, err
		}
		docs = append(docs, page.Documents...)
		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}
