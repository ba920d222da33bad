package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jharjadi/guides-search/internal/access"
	"github.com/jharjadi/guides-search/internal/metrics"
	"github.com/jharjadi/guides-search/internal/model"
	"github.com/jharjadi/guides-search/internal/session"
)

// SessionHandler is the access gate: it trades a Store ID for a session token.
type SessionHandler struct {
	issuer          *session.Issuer
	configuredStore string
}

// NewSessionHandler creates a new SessionHandler. configuredStore is the
// server-wide store, empty when users must pick their own.
func NewSessionHandler(issuer *session.Issuer, configuredStore string) *SessionHandler {
	return &SessionHandler{issuer: issuer, configuredStore: configuredStore}
}

// Create handles POST /v1/session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.configuredStore != "" {
		writeError(w, http.StatusConflict, "store_configured", "a store is already configured for this server")
		return
	}

	var req model.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	storeName, err := access.ValidateStoreName(req.StoreName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_store", err.Error())
		return
	}

	token, exp, err := h.issuer.Sign(storeName)
	if err != nil {
		slog.Error("failed to sign session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}
	metrics.SessionsIssued.Inc()

	writeJSON(w, http.StatusOK, model.SessionResponse{
		Token:     token,
		StoreName: storeName,
		ExpiresAt: exp,
	})
}
