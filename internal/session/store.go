// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package session

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a session does not exist.
// Callers wrap it with oops for context.
var ErrNotFound = errors.New("session not found")

// Store manages session persistence. Implementations must return clones,
// never internal pointers.
type Store interface {
	// Create stores a new session. The token hash must be unique.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID. Returns an error wrapping
	// ErrNotFound when the session does not exist.
	Get(ctx context.Context, id ulid.ULID) (*Session, error)

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound when no session matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Update persists the full session state, including a rotated
	// token hash. Returns an error wrapping ErrNotFound when the
	// session no longer exists.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by ID. Returns an error wrapping
	// ErrNotFound when the session does not exist.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteIdle removes sessions last seen before cutoff and returns
	// the count of deleted records.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
