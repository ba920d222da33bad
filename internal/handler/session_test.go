package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jharjadi/guides-search/internal/model"
	"github.com/jharjadi/guides-search/internal/session"
)

func postSession(h *SessionHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/session", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)
	return rr
}

func TestSessionHandler_Create(t *testing.T) {
	issuer := session.NewIssuer("test-secret", 1)
	rr := postSession(NewSessionHandler(issuer, ""), `{"store_name":"  fileSearchStores/abc  "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp model.SessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StoreName != "fileSearchStores/abc" {
		t.Errorf("store: got %q", resp.StoreName)
	}
	claims, err := issuer.Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.StoreName != "fileSearchStores/abc" {
		t.Errorf("token store: got %q", claims.StoreName)
	}
}

func TestSessionHandler_InvalidStore(t *testing.T) {
	h := NewSessionHandler(session.NewIssuer("test-secret", 1), "")
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"invalid json", `not json`, "invalid JSON body"},
		{"empty", `{"store_name":"  "}`, "please enter a Store ID"},
		{"wrong prefix", `{"store_name":"stores/abc"}`, "fileSearchStores/"},
		{"bare prefix", `{"store_name":"fileSearchStores/"}`, "fileSearchStores/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postSession(h, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			var resp model.ErrorResponse
			json.NewDecoder(rr.Body).Decode(&resp)
			if !strings.Contains(resp.Message, tt.msg) {
				t.Errorf("message %q should contain %q", resp.Message, tt.msg)
			}
		})
	}
}

func TestSessionHandler_StoreConfigured(t *testing.T) {
	h := NewSessionHandler(session.NewIssuer("test-secret", 1), "fileSearchStores/fixed")
	rr := postSession(h, `{"store_name":"fileSearchStores/abc"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rr.Code)
	}
}
