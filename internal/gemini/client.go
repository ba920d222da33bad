// Package gemini is a thin REST client for the parts of the Gemini API the
// guides search uses: File Search stores, long-running operations and
// generateContent with the fileSearch tool.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	apiVersion = "v1beta"

	defaultTimeout = 120 * time.Second
)

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// APIError is a non-2xx response from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini API returned %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Gemini REST API with an API key.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL and a
// non-positive timeout selects a two minute default.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// apiURL builds a URL under the versioned API root.
func (c *Client) apiURL(path string) string {
	return c.baseURL + "/" + apiVersion + "/" + strings.TrimLeft(path, "/")
}

// uploadURL builds a URL under the media upload root.
func (c *Client) uploadURL(path string) string {
	return c.baseURL + "/upload/" + apiVersion + "/" + strings.TrimLeft(path, "/")
}

// doJSON sends an optional JSON body and decodes the JSON response into out
// when out is non-nil. The raw response body is always returned.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) ([]byte, error) {
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return respBody, nil
}

// newAPIError reads the google.rpc.Status envelope when there is one.
func newAPIError(code int, body []byte) *APIError {
	e := &APIError{StatusCode: code, Body: strings.TrimSpace(string(body))}
	if gjson.ValidBytes(body) {
		status := gjson.GetBytes(body, "error")
		e.Message = status.Get("message").String()
		e.Status = status.Get("status").String()
	}
	return e
}
