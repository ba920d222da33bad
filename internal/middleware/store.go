// Package middleware provides HTTP middleware for the guides API.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jharjadi/guides-search/internal/session"
)

type contextKey string

// ContextKeyStoreName is the context key for the store a request is bound to.
const ContextKeyStoreName contextKey = "store_name"

// StoreNameFromContext extracts the store name from the request context.
// Returns empty string if not present.
func StoreNameFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyStoreName).(string)
	return v
}

// WithStoreName returns a copy of ctx bound to storeName.
func WithStoreName(ctx context.Context, storeName string) context.Context {
	return context.WithValue(ctx, ContextKeyStoreName, storeName)
}

// StoreGate binds every request to a File Search store.
//
// When configuredStore is set, all requests use it and no token is needed.
// Otherwise a session token (Authorization: Bearer <token>) issued by
// POST /v1/session must carry the store.
func StoreGate(configuredStore string, issuer *session.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if configuredStore != "" {
				next.ServeHTTP(w, r.WithContext(WithStoreName(r.Context(), configuredStore)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeGateError(w, "no store is configured, create a session with a Store ID first")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeGateError(w, "invalid Authorization header format (expected: Bearer <token>)")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenStr == "" {
				writeGateError(w, "empty bearer token")
				return
			}

			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				slog.Debug("session verification failed", "error", err)
				writeGateError(w, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStoreName(r.Context(), claims.StoreName)))
		})
	}
}

func writeGateError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// Encoded here rather than via the handler package, which imports this one.
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   "access_required",
		"message": message,
	}); err != nil {
		slog.Error("failed to write gate error", "error", err)
	}
}
