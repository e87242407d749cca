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

// TeacherStore implements identity.Store for the teacher role.
type TeacherStore struct {
	userWriter
}

// NewTeacherStore creates a new TeacherStore.
func NewTeacherStore(pool *pgxpool.Pool) *TeacherStore {
	return &TeacherStore{userWriter{pool: pool, role: identity.RoleTeacher}}
}

// Role returns identity.RoleTeacher.
func (s *TeacherStore) Role() identity.Role { return identity.RoleTeacher }

const teacherSelect = `
	SELECT u.id, u.email, u.role, u.status, u.password_hash, p.full_name, u.created_at, u.updated_at
	FROM users u
	JOIN teacher_profiles p ON p.user_id = u.id
`

// GetByEmail retrieves a teacher by email, case-insensitively.
func (s *TeacherStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, teacherSelect+`
		WHERE lower(u.email) = lower($1) AND u.role = $2
	`, email, identity.RoleTeacher.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_EMAIL_FAILED").
			With("operation", "get teacher by email").
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a teacher by ID.
func (s *TeacherStore) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, teacherSelect+`
		WHERE u.id = $1 AND u.role = $2
	`, id, identity.RoleTeacher.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("user_id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_ID_FAILED").
			With("operation", "get teacher by id").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

// Create inserts the identity row and the teacher profile in one
// transaction.
func (s *TeacherStore) Create(ctx context.Context, u *identity.User, profile identity.Profile) (int64, error) {
	teacherProfile, ok := profile.(identity.TeacherProfile)
	if !ok {
		return 0, oops.Code("IDENTITY_PROFILE_MISMATCH").
			Errorf("teacher store requires a TeacherProfile")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // No-op after commit

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, role, status, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Email, identity.RoleTeacher.String(), u.Status.String(), u.PasswordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("IDENTITY_DUPLICATE_EMAIL").Wrap(identity.ErrDuplicateEmail)
		}
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO teacher_profiles (user_id, full_name, phone, qualification)
		VALUES ($1, $2, $3, $4)
	`, id, teacherProfile.FullName, teacherProfile.Phone, teacherProfile.Qualification)
	if err != nil {
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert teacher profile").
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ identity.Store = (*TeacherStore)(nil)
