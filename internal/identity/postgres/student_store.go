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

// StudentStore implements identity.Store for the student role. Display
// names come from the joined student profile.
type StudentStore struct {
	userWriter
}

// NewStudentStore creates a new StudentStore.
func NewStudentStore(pool *pgxpool.Pool) *StudentStore {
	return &StudentStore{userWriter{pool: pool, role: identity.RoleStudent}}
}

// Role returns identity.RoleStudent.
func (s *StudentStore) Role() identity.Role { return identity.RoleStudent }

const studentSelect = `
	SELECT u.id, u.email, u.role, u.status, u.password_hash, p.full_name, u.created_at, u.updated_at
	FROM users u
	JOIN student_profiles p ON p.user_id = u.id
`

// GetByEmail retrieves a student by email, case-insensitively.
func (s *StudentStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, studentSelect+`
		WHERE lower(u.email) = lower($1) AND u.role = $2
	`, email, identity.RoleStudent.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_EMAIL_FAILED").
			With("operation", "get student by email").
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a student by ID.
func (s *StudentStore) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	row := s.pool.QueryRow(ctx, studentSelect+`
		WHERE u.id = $1 AND u.role = $2
	`, id, identity.RoleStudent.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("user_id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_ID_FAILED").
			With("operation", "get student by id").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

// Create inserts the identity row and the student profile in one
// transaction; a unique violation on email rolls both back.
func (s *StudentStore) Create(ctx context.Context, u *identity.User, profile identity.Profile) (int64, error) {
	studentProfile, ok := profile.(identity.StudentProfile)
	if !ok {
		return 0, oops.Code("IDENTITY_PROFILE_MISMATCH").
			Errorf("student store requires a StudentProfile")
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
	`, u.Email, identity.RoleStudent.String(), u.Status.String(), u.PasswordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("IDENTITY_DUPLICATE_EMAIL").Wrap(identity.ErrDuplicateEmail)
		}
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO student_profiles (user_id, full_name, phone, semester, roll_number)
		VALUES ($1, $2, $3, $4, $5)
	`, id, studentProfile.FullName, studentProfile.Phone, studentProfile.Semester, studentProfile.RollNumber)
	if err != nil {
		return 0, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert student profile").
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
var _ identity.Store = (*StudentStore)(nil)
