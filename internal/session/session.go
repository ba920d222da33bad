// Package session issues the signed tokens that carry a user's chosen store
// past the access gate.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "guides-search"

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
	StoreName string `json:"store_name"`
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	secret  []byte
	expiryH int
}

// NewIssuer creates an Issuer. An empty secret is replaced with a random one,
// which means tokens do not survive a restart.
func NewIssuer(secret string, expiryHours int) *Issuer {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("session: generate secret: %v", err))
		}
		slog.Warn("SESSION_SECRET not set, using an ephemeral signing key")
	}
	return &Issuer{secret: key, expiryH: expiryHours}
}

// Expiry returns the token lifetime.
func (s *Issuer) Expiry() time.Duration {
	return time.Duration(s.expiryH) * time.Hour
}

// Sign creates a token bound to storeName.
func (s *Issuer) Sign(storeName string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.Expiry())
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    issuer,
		},
		StoreName: storeName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Issuer) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.StoreName == "" {
		return nil, errors.New("token missing store_name")
	}
	return claims, nil
}
