package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient("test-key", srv.URL, 0)
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		c, err := NewClient(key, "", 0)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	}
}

func TestListStores_FollowsPages(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			io.WriteString(w, `{"fileSearchStores":[{"name":"fileSearchStores/a","displayName":"A"}],"nextPageToken":"p2"}`)
		case "p2":
			io.WriteString(w, `{"fileSearchStores":[{"name":"fileSearchStores/b","displayName":"GSPP-User-Guides"}]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	stores, err := c.ListStores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, stores, 2)
	assert.Equal(t, "fileSearchStores/b", stores[1].Name)
	assert.Equal(t, "GSPP-User-Guides", stores[1].DisplayName)
}

func TestCreateStore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "GSPP-User-Guides", body["displayName"])
		io.WriteString(w, `{"name":"fileSearchStores/new-123","displayName":"GSPP-User-Guides"}`)
	})

	store, err := c.CreateStore(context.Background(), "GSPP-User-Guides")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/new-123", store.Name)
}

func TestDeleteStore_Force(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores/old", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		io.WriteString(w, `{}`)
	})
	require.NoError(t, c.DeleteStore(context.Background(), "fileSearchStores/old", true))
}

func TestUploadToStore_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/v1beta/fileSearchStores/s1:uploadToFileSearchStore", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "multipart", r.Header.Get("X-Goog-Upload-Protocol"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		require.NoError(t, err)
		metaBody, _ := io.ReadAll(meta)
		assert.JSONEq(t, `{"displayName":"Job Planning"}`, string(metaBody))

		file, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", file.Header.Get("Content-Type"))
		fileBody, _ := io.ReadAll(file)
		assert.Equal(t, "%PDF-1.4 fake", string(fileBody))

		io.WriteString(w, `{"name":"fileSearchStores/s1/operations/op-1","done":false}`)
	})

	op, err := c.UploadToStore(context.Background(), path, "fileSearchStores/s1", "Job Planning")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/s1/operations/op-1", op.Name)
	assert.False(t, op.Done)
}

func TestUploadToStore_MissingFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a missing file")
	})
	_, err := c.UploadToStore(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "fileSearchStores/s1", "x")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetOperation_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/fileSearchStores/s1/operations/op-1", r.URL.Path)
		io.WriteString(w, `{"name":"fileSearchStores/s1/operations/op-1","done":true,"error":{"code":3,"message":"bad pdf"}}`)
	})
	op, err := c.GetOperation(context.Background(), "fileSearchStores/s1/operations/op-1")
	require.NoError(t, err)
	assert.True(t, op.Done)
	require.Error(t, op.Err())
	assert.Contains(t, op.Err().Error(), "bad pdf")
}

func TestGenerateContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		assert.JSONEq(t, `{
			"contents":[{"role":"user","parts":[{"text":"How do I create a new job?"}]}],
			"systemInstruction":{"parts":[{"text":"docs only"}]},
			"tools":[{"fileSearch":{"fileSearchStoreNames":["fileSearchStores/s1"]}}]
		}`, string(raw))

		io.WriteString(w, `{
			"candidates":[{
				"content":{"parts":[{"text":"thinking...","thought":true},{"text":"Open the "},{"text":"Jobs tab."}]},
				"finishReason":"STOP",
				"groundingMetadata":{"groundingChunks":[{"retrievedContext":{"title":"Guide"}}]}
			}],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":5}
		}`)
	})

	resp, err := c.GenerateContent(context.Background(), GenerateRequest{
		Model:             "models/gemini-test",
		Question:          "How do I create a new job?",
		SystemInstruction: "docs only",
		StoreNames:        []string{"fileSearchStores/s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Open the Jobs tab.", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 5, resp.CompletionTokens)
	assert.Contains(t, string(resp.Raw), "groundingMetadata")
}

func TestGenerateContent_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})

	_, err := c.GenerateContent(context.Background(), GenerateRequest{Model: "m", Question: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
	assert.Equal(t, "API key not valid", apiErr.Message)
}

func TestAnswerText_NoCandidates(t *testing.T) {
	assert.Equal(t, "", AnswerText([]byte(`{}`)))
	assert.Equal(t, "", AnswerText([]byte(`not json`)))
}
