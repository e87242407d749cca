// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package postgres implements the per-role identity.Store capability
// using PostgreSQL. One store type exists per role; role never reaches
// the SQL as interpolated text, only as a bind parameter from the
// enumerated constants.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/campusgate/campusgate/internal/identity"
)

// NewDirectory wires one store per role over a shared pool.
func NewDirectory(pool *pgxpool.Pool) (*identity.Directory, error) {
	return identity.NewDirectory(
		NewAdminStore(pool),
		NewTeacherStore(pool),
		NewStudentStore(pool),
	)
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. The unique index on lower(email) is the authoritative
// duplicate-email guard.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// scanUser scans the common users columns plus the display name.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*identity.User, error) {
	var (
		id           int64
		email        string
		roleStr      string
		statusStr    string
		passwordHash string
		displayName  string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&id, &email, &roleStr, &statusStr, &passwordHash, &displayName, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("IDENTITY_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	role, err := identity.ParseRole(roleStr)
	if err != nil {
		return nil, err
	}
	status, err := identity.ParseStatus(statusStr)
	if err != nil {
		return nil, err
	}

	return &identity.User{
		ID:           id,
		Email:        email,
		Role:         role,
		Status:       status,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// userWriter carries the shared credential and status mutations; each
// role store embeds it.
type userWriter struct {
	pool *pgxpool.Pool
	role identity.Role
}

// UpdatePassword replaces the stored password hash.
func (w *userWriter) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := w.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1 AND role = $3
	`, id, passwordHash, w.role.String())
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_PASSWORD_FAILED").
			With("operation", "update password_hash").
			With("user_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("user_id", id).
			With("role", w.role.String()).
			Wrap(identity.ErrNotFound)
	}
	return nil
}

// UpdateStatus moves the account to status.
func (w *userWriter) UpdateStatus(ctx context.Context, id int64, status identity.Status) error {
	result, err := w.pool.Exec(ctx, `
		UPDATE users SET status = $2, updated_at = now()
		WHERE id = $1 AND role = $3
	`, id, status.String(), w.role.String())
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_STATUS_FAILED").
			With("operation", "update status").
			With("user_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("user_id", id).
			With("role", w.role.String()).
			Wrap(identity.ErrNotFound)
	}
	return nil
}
