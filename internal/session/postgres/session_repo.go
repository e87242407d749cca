// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package postgres implements session.Store using PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/campusgate/campusgate/internal/session"
)

// poolIface is the subset of pgxpool.Pool the store needs. pgxmock
// satisfies it, so the queries are unit-testable without a database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionStore implements session.Store using PostgreSQL.
type SessionStore struct {
	pool poolIface
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool poolIface) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	flash, err := json.Marshal(sess.Flash)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").
			With("operation", "marshal flash").
			Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO web_sessions (id, token_hash, authenticated, user_id, role, display_name, csrf_token, flash, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		sess.ID.String(),
		sess.TokenHash,
		sess.Authenticated,
		nullableUserID(sess),
		sess.Role,
		sess.DisplayName,
		sess.CSRFToken,
		flash,
		sess.CreatedAt,
		sess.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert web_session").
			With("id", sess.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, id ulid.ULID) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_hash, authenticated, user_id, role, display_name, csrf_token, flash, created_at, last_seen_at
		FROM web_sessions
		WHERE id = $1
	`, id.String())

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(session.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return sess, nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_hash, authenticated, user_id, role, display_name, csrf_token, flash, created_at, last_seen_at
		FROM web_sessions
		WHERE token_hash = $1
	`, tokenHash)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(session.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return sess, nil
}

// Update persists the full session state, including a rotated token hash.
func (s *SessionStore) Update(ctx context.Context, sess *session.Session) error {
	flash, err := json.Marshal(sess.Flash)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").
			With("operation", "marshal flash").
			Wrap(err)
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE web_sessions
		SET token_hash = $2, authenticated = $3, user_id = $4, role = $5,
		    display_name = $6, csrf_token = $7, flash = $8, last_seen_at = $9
		WHERE id = $1
	`,
		sess.ID.String(),
		sess.TokenHash,
		sess.Authenticated,
		nullableUserID(sess),
		sess.Role,
		sess.DisplayName,
		sess.CSRFToken,
		flash,
		sess.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update web_session").
			With("id", sess.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", sess.ID.String()).
			Wrap(session.ErrNotFound)
	}
	return nil
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM web_sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete web_session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(session.ErrNotFound)
	}
	return nil
}

// DeleteIdle removes sessions last seen before cutoff and returns the count.
func (s *SessionStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM web_sessions WHERE last_seen_at < $1
	`, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_IDLE_FAILED").
			With("operation", "delete idle web_sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// nullableUserID maps the anonymous zero UserID to SQL NULL so the
// foreign key to users only binds for authenticated sessions.
func nullableUserID(sess *session.Session) *int64 {
	if !sess.Authenticated {
		return nil
	}
	id := sess.UserID
	return &id
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		idStr         string
		tokenHash     string
		authenticated bool
		userID        *int64
		role          string
		displayName   string
		csrfToken     string
		flashRaw      []byte
		createdAt     time.Time
		lastSeenAt    time.Time
	)

	err := row.Scan(&idStr, &tokenHash, &authenticated, &userID, &role, &displayName, &csrfToken, &flashRaw, &createdAt, &lastSeenAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan web_session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	flash := make(map[string]string)
	if len(flashRaw) > 0 {
		if err := json.Unmarshal(flashRaw, &flash); err != nil {
			return nil, oops.Code("SESSION_DECODE_FAILED").
				With("operation", "unmarshal flash").
				With("id", idStr).
				Wrap(err)
		}
	}

	sess := &session.Session{
		ID:            id,
		TokenHash:     tokenHash,
		Authenticated: authenticated,
		Role:          role,
		DisplayName:   displayName,
		CSRFToken:     csrfToken,
		Flash:         flash,
		CreatedAt:     createdAt,
		LastSeenAt:    lastSeenAt,
	}
	if userID != nil {
		sess.UserID = *userID
	}
	return sess, nil
}

// Compile-time interface check.
var _ session.Store = (*SessionStore)(nil)
