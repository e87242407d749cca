// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package csrf issues and verifies per-session request-forgery tokens.
//
// One token is active per session, not per form: it is issued when the
// session starts and rotated on login and logout only. Every state-changing
// form carries it in a hidden field, and handlers verify it before reading
// any other field.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of a token; 32 bytes = 64 hex chars.
const TokenBytes = 32

// FieldName is the hidden form field carrying the token.
const FieldName = "csrf_token"

// FailureMessage is the uniform user-facing text for every verification
// failure. Missing, stale, and tampered tokens are deliberately
// indistinguishable to the client.
const FailureMessage = "Invalid request. Please try again."

// Generate returns a new high-entropy opaque token.
func Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("CSRF_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// Verify reports whether candidate is byte-for-byte equal to the issued
// token. It returns false when no token has been issued (issued == "").
// Comparison is constant-time.
func Verify(issued, candidate string) bool {
	if issued == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(issued), []byte(candidate)) == 1
}
