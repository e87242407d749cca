// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package session provides server-side web sessions with opaque cookie
// tokens, idle-timeout expiry, per-session CSRF tokens, and one-shot flash
// messages.
//
// The plaintext token lives only in the client cookie; stores persist the
// SHA-256 hash, so a leaked session table cannot be replayed.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	TokenBytes         = 32               // 32 bytes = 64 hex chars
	DefaultIdleTimeout = 30 * time.Minute // rolling inactivity window
)

// Session is a server-side session record. Anonymous sessions have
// Authenticated == false and zero UserID; Login flips them in place.
type Session struct {
	ID            ulid.ULID
	TokenHash     string
	Authenticated bool
	UserID        int64
	Role          string
	DisplayName   string
	CSRFToken     string
	Flash         map[string]string
	CreatedAt     time.Time
	LastSeenAt    time.Time
}

// NewSession creates a validated anonymous Session.
func NewSession(tokenHash, csrfToken string, now time.Time) (*Session, error) {
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if csrfToken == "" {
		return nil, oops.Code("SESSION_INVALID_CSRF").Errorf("csrf token cannot be empty")
	}
	if now.IsZero() {
		return nil, oops.Code("SESSION_INVALID_TIME").Errorf("creation time cannot be zero")
	}

	return &Session{
		ID:         ulid.Make(),
		TokenHash:  tokenHash,
		CSRFToken:  csrfToken,
		Flash:      make(map[string]string),
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IdleExpiredAt reports whether the session would be idle-expired at t.
func (s *Session) IdleExpiredAt(t time.Time, idleTimeout time.Duration) bool {
	return t.Sub(s.LastSeenAt) > idleTimeout
}

// Clone returns a deep copy. Stores hand out clones so callers cannot
// mutate persisted state behind the store's back.
func (s *Session) Clone() *Session {
	dup := *s
	dup.Flash = make(map[string]string, len(s.Flash))
	for k, v := range s.Flash {
		dup.Flash[k] = v
	}
	return &dup
}

// GenerateToken creates a secure random session token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token goes
// to the client cookie; only the hash is stored.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashToken(token)

	return token, hash, nil
}

// HashToken computes the SHA-256 hash of a session token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyToken(token, hash string) (bool, error) {
	if token == "" {
		return false, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}
	if hash == "" {
		return false, oops.Code("SESSION_HASH_EMPTY").Errorf("stored hash cannot be empty")
	}
	computed := HashToken(token)
	// Both are hex-encoded SHA-256 hashes (64 chars), use constant-time compare
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}
