// Package model defines the request, response and record types shared by the
// server, setup and chat surfaces.
package model

import (
	"encoding/json"
	"time"

	"github.com/jharjadi/guides-search/internal/grounding"
)

// QueryRequest is the POST /v1/query request body.
type QueryRequest struct {
	Question string `json:"question"`
	Debug    bool   `json:"debug"`
}

// QueryResponse is the POST /v1/query response body.
type QueryResponse struct {
	Answer    string               `json:"answer"`
	Citations []grounding.Citation `json:"citations"`
	Abstained bool                 `json:"abstained"`
	Debug     *DebugInfo           `json:"debug"`
}

// ErrorResponse is the standard error response body. Detail is only filled
// for debug requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// DebugInfo contains debug information when debug=true.
type DebugInfo struct {
	Model        string                 `json:"model"`
	StoreName    string                 `json:"store_name"`
	FinishReason string                 `json:"finish_reason,omitempty"`
	Branch       grounding.Branch       `json:"branch"`
	Diagnostics  grounding.Diagnostics  `json:"diagnostics"`
	RawGrounding grounding.RawGrounding `json:"raw_grounding"`
}

// SessionRequest is the POST /v1/session request body.
type SessionRequest struct {
	StoreName string `json:"store_name"`
}

// SessionResponse carries the token that unlocks the query endpoints.
type SessionResponse struct {
	Token     string    `json:"token"`
	StoreName string    `json:"store_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GuidesResponse is the GET /v1/guides sidebar payload.
type GuidesResponse struct {
	StoreName        string   `json:"store_name"`
	StoreDisplayName string   `json:"store_display_name"`
	Documents        []string `json:"documents"`
	Model            string   `json:"model"`
	Mode             string   `json:"mode"`
	ExampleQuestions []string `json:"example_questions"`
}

// QueryLog holds all fields for the structured per-query log line. It never
// carries the question or citation text.
type QueryLog struct {
	Timestamp         time.Time `json:"ts"`
	RequestID         string    `json:"request_id"`
	StoreName         string    `json:"store_name"`
	QuestionHash      string    `json:"question_hash"`
	Model             string    `json:"model"`
	Branch            string    `json:"branch"`
	NumChunks         int       `json:"num_chunks"`
	NumSupports       int       `json:"num_supports"`
	NumCitations      int       `json:"num_citations"`
	Abstained         bool      `json:"abstained"`
	PromptTokens      int       `json:"prompt_tokens"`
	CompletionTokens  int       `json:"completion_tokens"`
	LatencyMSGenerate int64     `json:"latency_ms_generate"`
	LatencyMSTotal    int64     `json:"latency_ms_total"`
	HTTPStatus        int       `json:"http_status"`
}

// Ingestion run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// FileFailure is one guide that could not be indexed.
type FileFailure struct {
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Error       string `json:"error"`
}

// RunStats is the stats column of an ingestion run.
type RunStats struct {
	FilesTotal  int           `json:"files_total"`
	Uploaded    []string      `json:"uploaded"`
	Failed      []FileFailure `json:"failed"`
	ReusedStore bool          `json:"reused_store"`
}

// IngestionRunItem is one row of GET /v1/ingestion-runs.
type IngestionRunItem struct {
	RunID      string          `json:"run_id"`
	StoreName  string          `json:"store_name"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Stats      json.RawMessage `json:"stats"`
	Error      *string         `json:"error"`
	DurationMS *int64          `json:"duration_ms,omitempty"`
}

// IngestionRunListResponse is the GET /v1/ingestion-runs response body.
type IngestionRunListResponse struct {
	Runs  []IngestionRunItem `json:"runs"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// Pagination holds validated page parameters.
type Pagination struct {
	Page  int
	Limit int
}

// DefaultPagination clamps page to >= 1 and limit to 1..100 (default 20).
func DefaultPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Pagination{Page: page, Limit: limit}
}

// Offset returns the SQL offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
