// Package handler implements HTTP handlers for the guides API.
package handler

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jharjadi/guides-search/internal/grounding"
	"github.com/jharjadi/guides-search/internal/metrics"
	storemw "github.com/jharjadi/guides-search/internal/middleware"
	"github.com/jharjadi/guides-search/internal/model"
	"github.com/jharjadi/guides-search/internal/service"
)

// Asker answers one question against a store.
type Asker interface {
	Ask(ctx context.Context, storeName, question string) (*service.Answer, error)
	Model() string
}

// QueryRecorder persists query log rows.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, q *model.QueryLog) error
}

// QueryHandler handles POST /v1/query requests.
type QueryHandler struct {
	answers  Asker
	recorder QueryRecorder
}

// NewQueryHandler creates a new QueryHandler. recorder may be nil.
func NewQueryHandler(answers Asker, recorder QueryRecorder) *QueryHandler {
	return &QueryHandler{answers: answers, recorder: recorder}
}

// Handle processes a POST /v1/query request: ask the model with the request's
// store bound as the retrieval tool, then turn its grounding metadata into
// citations.
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totalStart := time.Now()
	requestID := chimw.GetReqID(ctx)

	storeName := storemw.StoreNameFromContext(ctx)
	if storeName == "" {
		writeError(w, http.StatusUnauthorized, "access_required", "no store is bound to this request")
		return
	}

	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	qlog := &model.QueryLog{
		Timestamp:    time.Now().UTC(),
		RequestID:    requestID,
		StoreName:    storeName,
		QuestionHash: hashQuestion(req.Question),
		Model:        h.answers.Model(),
	}

	ans, err := h.answers.Ask(ctx, storeName, req.Question)
	if err != nil {
		slog.Error("generate failed", "error", err, "request_id", requestID)
		resp := model.ErrorResponse{
			Error:   "upstream_error",
			Message: "the answer service is unavailable, please try again",
		}
		if req.Debug {
			resp.Detail = err.Error()
		}
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, resp)
		metrics.RecordQuery("error", "", 0, 0)
		h.emitQueryLog(ctx, qlog, status, totalStart)
		return
	}

	qlog.Branch = string(ans.Grounding.Branch)
	qlog.NumChunks = len(ans.Grounding.Raw.Chunks)
	qlog.NumSupports = len(ans.Grounding.Raw.Supports)
	qlog.NumCitations = len(ans.Citations)
	qlog.Abstained = ans.Abstained
	qlog.PromptTokens = ans.PromptTokens
	qlog.CompletionTokens = ans.CompletionTokens
	qlog.LatencyMSGenerate = ans.Latency.Milliseconds()

	citations := ans.Citations
	if citations == nil {
		citations = []grounding.Citation{}
	}
	resp := &model.QueryResponse{
		Answer:    ans.Text,
		Citations: citations,
		Abstained: ans.Abstained,
	}
	if req.Debug {
		resp.Debug = &model.DebugInfo{
			Model:        h.answers.Model(),
			StoreName:    storeName,
			FinishReason: ans.FinishReason,
			Branch:       ans.Grounding.Branch,
			Diagnostics:  ans.Grounding.Diagnostics,
			RawGrounding: ans.Grounding.Raw,
		}
	}

	status := "ok"
	if ans.Abstained {
		status = "abstained"
	}
	metrics.RecordQuery(status, qlog.Branch, qlog.NumCitations, ans.Latency)

	writeJSON(w, http.StatusOK, resp)
	h.emitQueryLog(ctx, qlog, http.StatusOK, totalStart)
}

// emitQueryLog writes the structured per-query log line and, when a recorder
// is wired, the query_logs row.
func (h *QueryHandler) emitQueryLog(ctx context.Context, qlog *model.QueryLog, httpStatus int, totalStart time.Time) {
	qlog.HTTPStatus = httpStatus
	qlog.LatencyMSTotal = time.Since(totalStart).Milliseconds()

	slog.Info("query",
		"ts", qlog.Timestamp.Format(time.RFC3339),
		"request_id", qlog.RequestID,
		"store_name", qlog.StoreName,
		"question_hash", qlog.QuestionHash,
		"model", qlog.Model,
		"branch", qlog.Branch,
		"num_chunks", qlog.NumChunks,
		"num_supports", qlog.NumSupports,
		"num_citations", qlog.NumCitations,
		"abstained", qlog.Abstained,
		"prompt_tokens", qlog.PromptTokens,
		"completion_tokens", qlog.CompletionTokens,
		"latency_ms_generate", qlog.LatencyMSGenerate,
		"latency_ms_total", qlog.LatencyMSTotal,
		"http_status", qlog.HTTPStatus,
	)

	if h.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.recorder.RecordQuery(rctx, qlog); err != nil {
		slog.Warn("failed to record query log", "error", err, "request_id", qlog.RequestID)
	}
}

// hashQuestion returns SHA-256 hex of the lowercased, trimmed question.
func hashQuestion(question string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return fmt.Sprintf("%x", h)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
