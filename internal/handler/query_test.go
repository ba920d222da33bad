package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jharjadi/guides-search/internal/grounding"
	storemw "github.com/jharjadi/guides-search/internal/middleware"
	"github.com/jharjadi/guides-search/internal/model"
	"github.com/jharjadi/guides-search/internal/service"
)

type fakeAsker struct {
	ans       *service.Answer
	err       error
	gotStore  string
	gotAsk    string
	callCount int
}

func (f *fakeAsker) Ask(_ context.Context, storeName, question string) (*service.Answer, error) {
	f.callCount++
	f.gotStore = storeName
	f.gotAsk = question
	return f.ans, f.err
}

func (f *fakeAsker) Model() string { return "gemini-test" }

type fakeQueryRecorder struct {
	logs []model.QueryLog
}

func (f *fakeQueryRecorder) RecordQuery(_ context.Context, q *model.QueryLog) error {
	f.logs = append(f.logs, *q)
	return nil
}

func postQuery(t *testing.T, h *QueryHandler, store, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	if store != "" {
		req = req.WithContext(storemw.WithStoreName(req.Context(), store))
	}
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func groundedAnswer() *service.Answer {
	return &service.Answer{
		Text: "Open the Jobs tab.",
		Citations: []grounding.Citation{
			{Title: "Job Planning Guide", SourceText: "Jobs are created from the Jobs tab."},
		},
		Grounding: grounding.Result{
			Branch:      grounding.BranchSupports,
			Diagnostics: grounding.Diagnostics{"grounding_chunks_count": 2},
			Raw: grounding.RawGrounding{
				Chunks:   []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)},
				Supports: []json.RawMessage{json.RawMessage(`{}`)},
			},
		},
		FinishReason: "STOP",
		PromptTokens: 12,
		Latency:      40 * time.Millisecond,
	}
}

func TestQueryHandler_Success(t *testing.T) {
	asker := &fakeAsker{ans: groundedAnswer()}
	rec := &fakeQueryRecorder{}
	h := NewQueryHandler(asker, rec)

	rr := postQuery(t, h, "fileSearchStores/s1", `{"question":"  How do I create a job? "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if asker.gotStore != "fileSearchStores/s1" {
		t.Errorf("store: got %q", asker.gotStore)
	}
	if asker.gotAsk != "How do I create a job?" {
		t.Errorf("question should be trimmed, got %q", asker.gotAsk)
	}

	var resp model.QueryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Open the Jobs tab." {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Title != "Job Planning Guide" {
		t.Errorf("citations: got %+v", resp.Citations)
	}
	if resp.Debug != nil {
		t.Error("debug should be omitted unless requested")
	}

	if len(rec.logs) != 1 {
		t.Fatalf("expected 1 query log, got %d", len(rec.logs))
	}
	ql := rec.logs[0]
	if ql.NumChunks != 2 || ql.NumSupports != 1 || ql.NumCitations != 1 {
		t.Errorf("counts: got chunks=%d supports=%d citations=%d", ql.NumChunks, ql.NumSupports, ql.NumCitations)
	}
	if ql.Branch != "supports" {
		t.Errorf("branch: got %q", ql.Branch)
	}
	if ql.QuestionHash != hashQuestion("how do i create a job?") {
		t.Error("question hash should be over the normalized question")
	}
	if ql.HTTPStatus != http.StatusOK {
		t.Errorf("http_status: got %d", ql.HTTPStatus)
	}
}

func TestQueryHandler_Debug(t *testing.T) {
	h := NewQueryHandler(&fakeAsker{ans: groundedAnswer()}, nil)

	rr := postQuery(t, h, "fileSearchStores/s1", `{"question":"q","debug":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var debug model.DebugInfo
	if err := json.Unmarshal(raw["debug"], &debug); err != nil {
		t.Fatalf("decode debug: %v", err)
	}
	if debug.Model != "gemini-test" || debug.StoreName != "fileSearchStores/s1" {
		t.Errorf("debug: got %+v", debug)
	}
	if debug.Branch != grounding.BranchSupports {
		t.Errorf("branch: got %q", debug.Branch)
	}
	if len(debug.RawGrounding.Chunks) != 2 {
		t.Errorf("raw chunks: got %d", len(debug.RawGrounding.Chunks))
	}
}

func TestQueryHandler_AbstainedHasEmptyCitations(t *testing.T) {
	h := NewQueryHandler(&fakeAsker{ans: &service.Answer{
		Text:      service.AbstainMessage,
		Abstained: true,
	}}, nil)

	rr := postQuery(t, h, "fileSearchStores/s1", `{"question":"What is the weather?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"citations":[]`)) {
		t.Errorf("citations should encode as an empty list: %s", rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"abstained":true`)) {
		t.Errorf("expected abstained: %s", rr.Body.String())
	}
}

func TestQueryHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question":`},
		{"missing question", `{}`},
		{"blank question", `{"question":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{ans: groundedAnswer()}
			rr := postQuery(t, NewQueryHandler(asker, nil), "fileSearchStores/s1", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
			if asker.callCount != 0 {
				t.Error("model should not be called")
			}
		})
	}
}

func TestQueryHandler_NoStore(t *testing.T) {
	rr := postQuery(t, NewQueryHandler(&fakeAsker{}, nil), "", `{"question":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestQueryHandler_UpstreamError(t *testing.T) {
	rec := &fakeQueryRecorder{}
	h := NewQueryHandler(&fakeAsker{err: errors.New("upstream unavailable")}, rec)

	rr := postQuery(t, h, "fileSearchStores/s1", `{"question":"q"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "upstream_error" {
		t.Errorf("error code: got %q", resp.Error)
	}
	if resp.Detail != "" {
		t.Error("detail should only be exposed in debug mode")
	}
	if len(rec.logs) != 1 || rec.logs[0].HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected a 502 query log, got %+v", rec.logs)
	}

	rr = postQuery(t, h, "fileSearchStores/s1", `{"question":"q","debug":true}`)
	resp = model.ErrorResponse{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Detail == "" {
		t.Error("debug mode should carry the error detail")
	}
}

func TestQueryHandler_Timeout(t *testing.T) {
	h := NewQueryHandler(&fakeAsker{err: context.DeadlineExceeded}, nil)
	rr := postQuery(t, h, "fileSearchStores/s1", `{"question":"q"}`)
	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rr.Code)
	}
}

func TestHashQuestion(t *testing.T) {
	if hashQuestion("  Hello ") != hashQuestion("hello") {
		t.Error("hash should ignore case and surrounding space")
	}
	if len(hashQuestion("x")) != 64 {
		t.Error("expected hex sha256")
	}
}
