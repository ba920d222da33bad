package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
)

// StoreNamePrefix is the resource prefix every File Search store name carries.
const StoreNamePrefix = "fileSearchStores/"

// Store is a File Search store resource.
type Store struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
}

// Status is the error carried by a failed operation.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Operation is a long-running upload/index operation.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *Status         `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Err returns the operation failure, if any.
func (o *Operation) Err() error {
	if o == nil || o.Error == nil {
		return nil
	}
	return fmt.Errorf("operation %s failed (code %d): %s", o.Name, o.Error.Code, o.Error.Message)
}

type listStoresResponse struct {
	FileSearchStores []Store `json:"fileSearchStores"`
	NextPageToken    string  `json:"nextPageToken"`
}

// ListStores returns every store visible to the API key, following pages.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var stores []Store
	pageToken := ""
	for {
		u := c.apiURL("fileSearchStores")
		if pageToken != "" {
			u += "?pageToken=" + url.QueryEscape(pageToken)
		}
		var page listStoresResponse
		if _, err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, fmt.Errorf("list stores: %w", err)
		}
		stores = append(stores, page.FileSearchStores...)
		if page.NextPageToken == "" {
			return stores, nil
		}
		pageToken = page.NextPageToken
	}
}

// CreateStore creates an empty store with the given display name.
func (c *Client) CreateStore(ctx context.Context, displayName string) (*Store, error) {
	var store Store
	in := map[string]string{"displayName": displayName}
	if _, err := c.doJSON(ctx, http.MethodPost, c.apiURL("fileSearchStores"), in, &store); err != nil {
		return nil, fmt.Errorf("create store %q: %w", displayName, err)
	}
	return &store, nil
}

// DeleteStore deletes a store. With force the store's documents go with it.
func (c *Client) DeleteStore(ctx context.Context, name string, force bool) error {
	u := c.apiURL(name)
	if force {
		u += "?force=true"
	}
	if _, err := c.doJSON(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("delete store %s: %w", name, err)
	}
	return nil
}

// UploadToStore uploads a local file into a store and returns the indexing
// operation. The request is a multipart/related upload: JSON metadata first,
// file bytes second.
func (c *Client) UploadToStore(ctx context.Context, filePath, storeName, displayName string) (*Operation, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	body, contentType, err := multipartRelated(
		map[string]string{"displayName": displayName},
		data,
		mimeTypeFor(filePath),
	)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}

	u := c.uploadURL(storeName + ":uploadToFileSearchStore?uploadType=multipart")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	var op Operation
	if _, err := c.do(req, &op); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(filePath), err)
	}
	return &op, nil
}

// GetOperation refreshes a long-running operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	var op Operation
	if _, err := c.doJSON(ctx, http.MethodGet, c.apiURL(name), nil, &op); err != nil {
		return nil, fmt.Errorf("get operation %s: %w", name, err)
	}
	return &op, nil
}

func multipartRelated(metadata any, data []byte, fileType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", err
	}
	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	part, err = w.CreatePart(textproto.MIMEHeader{"Content-Type": {fileType}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, "multipart/related; boundary=" + w.Boundary(), nil
}

func mimeTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
