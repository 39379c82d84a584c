package filesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"searchsync/internal/domain"
)

// HTTPClient talks to a Gemini-style file-search REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// uploadClient has no flat timeout: uploads of large files are bounded
	// by the caller's context instead.
	uploadClient *http.Client
}

// New creates a file-search API client.
func New(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		uploadClient: &http.Client{},
	}
}

type createStoreRequest struct {
	DisplayName string `json:"displayName"`
}

// CreateStore creates a remote store with the given display name.
func (c *HTTPClient) CreateStore(ctx context.Context, displayName string) (*Store, error) {
	jsonData, err := json.Marshal(createStoreRequest{DisplayName: displayName})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/fileSearchStores", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create store failed with status %d: %s", resp.StatusCode, string(body))
	}

	var store Store
	if err := json.Unmarshal(body, &store); err != nil {
		return nil, fmt.Errorf("failed to decode store response: %w", err)
	}
	return &store, nil
}

// GetStore fetches a store by resource name (e.g. "fileSearchStores/abc").
func (c *HTTPClient) GetStore(ctx context.Context, name string) (*Store, error) {
	reqURL := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get store failed with status %d: %s", resp.StatusCode, string(body))
	}

	var store Store
	if err := json.NewDecoder(resp.Body).Decode(&store); err != nil {
		return nil, fmt.Errorf("failed to decode store response: %w", err)
	}
	return &store, nil
}

// DeleteStore removes a store. A 404 is treated as success: the desired
// state already holds.
func (c *HTTPClient) DeleteStore(ctx context.Context, name string, force bool) error {
	reqURL := fmt.Sprintf("%s/v1beta/%s?force=%t", c.baseURL, name, force)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete store failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

type uploadMetadata struct {
	DisplayName    string           `json:"displayName,omitempty"`
	CustomMetadata []CustomMetadata `json:"customMetadata,omitempty"`
	MimeType       string           `json:"mimeType,omitempty"`
}

// UploadDocument submits a multipart upload (JSON metadata part + media part)
// and returns the long-running operation tracking it.
func (c *HTTPClient) UploadDocument(ctx context.Context, storeName string, upload *UploadRequest) (*Operation, error) {
	meta := uploadMetadata{
		DisplayName:    upload.DisplayName,
		CustomMetadata: upload.CustomMetadata,
		MimeType:       upload.MimeType,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload metadata: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, fmt.Errorf("failed to write metadata part: %w", err)
	}

	mediaType := upload.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	mediaPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaType}})
	if err != nil {
		return nil, fmt.Errorf("failed to create media part: %w", err)
	}
	if _, err := mediaPart.Write(upload.Content); err != nil {
		return nil, fmt.Errorf("failed to write media part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	reqURL := fmt.Sprintf("%s/upload/v1beta/%s:uploadToFileSearchStore?uploadType=multipart", c.baseURL, storeName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var op Operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operation response: %w", err)
	}
	return &op, nil
}

// PollOperation re-fetches an operation's current state.
func (c *HTTPClient) PollOperation(ctx context.Context, op *Operation) (*Operation, error) {
	reqURL := fmt.Sprintf("%s/v1beta/%s", c.baseURL, op.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll operation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll operation failed with status %d: %s", resp.StatusCode, string(body))
	}

	var polled Operation
	if err := json.NewDecoder(resp.Body).Decode(&polled); err != nil {
		return nil, fmt.Errorf("failed to decode operation response: %w", err)
	}
	return &polled, nil
}

// GetDocument fetches a document by resource name.
func (c *HTTPClient) GetDocument(ctx context.Context, name string) (*Document, error) {
	reqURL := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get document failed with status %d: %s", resp.StatusCode, string(body))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document response: %w", err)
	}
	return &doc, nil
}

// ListDocuments fetches one page of a store's document listing.
func (c *HTTPClient) ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*DocumentPage, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	reqURL := fmt.Sprintf("%s/v1beta/%s/documents", c.baseURL, storeName)
	if encoded := q.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list documents failed with status %d: %s", resp.StatusCode, string(body))
	}

	var page DocumentPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode listing response: %w", err)
	}
	return &page, nil
}

// DeleteDocument removes a document. A 404 is treated as success.
func (c *HTTPClient) DeleteDocument(ctx context.Context, name string, force bool) error {
	reqURL := fmt.Sprintf("%s/v1beta/%s?force=%t", c.baseURL, name, force)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete document failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", c.apiKey)
}
