// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/campusgate/campusgate/internal/identity"
)

// AdminStore implements identity.Store for the admin role. Admins carry
// no profile table; the email doubles as the display name.
type AdminStore struct {
	userWriter
}

// NewAdminStore creates a new AdminStore.
func NewAdminStore(pool *pgxpool.Pool) *AdminStore {
	return &AdminStore{userWriter{pool: pool, role: identity.RoleAdmin}}
}

// Role returns identity.RoleAdmin.
func (s *AdminStore) Role() identity.Role { return identity.RoleAdmin }

const adminSelect = `
	SELECT id, email, role, status, password_hash, email AS display_name, created_at, updated_at
	FROM users
`

// GetByEmail retrieves an admin by email, case-insensitively.
func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, adminSelect+`
		WHERE lower(email) = lower($1) AND role = $2
	`, email, identity.RoleAdmin.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_EMAIL_FAILED").
			With("operation", "get admin by email").
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves an admin by ID.
func (s *AdminStore) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, adminSelect+`
		WHERE id = $1 AND role = $2
	`, id, identity.RoleAdmin.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("user_id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_ID_FAILED").
			With("operation", "get admin by id").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

// Create inserts an admin identity. Admins have no profile row; profile
// must be nil.
func (s *AdminStore) Create(ctx context.Context, u *identity.User, profile identity.Profile) (int64, error) {
	if profile != nil {
		return 0, oops.Code("IDENTITY_PROFILE_MISMATCH").
			Errorf("admin identities carry no profile")
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, role, status, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Email, identity.RoleAdmin.String(), u.Status.String(), u.PasswordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("IDENTITY_DUPLICATE_EMAIL").Wrap(identity.ErrDuplicateEmail)
		}
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ identity.Store = (*AdminStore)(nil)
