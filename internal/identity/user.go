// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// User is the base identity record holding credentials and role. The
// role-specific profile row is 1:1 with it; DisplayName is denormalized
// from the profile on reads (admins, who have no profile, fall back to
// their email).
type User struct {
	ID           int64
	Email        string
	Role         Role
	Status       Status
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the closed set of role-specific profile records.
type Profile interface {
	profileRole() Role
}

// StudentProfile holds the student-domain attributes, 1:1 with a student
// user.
type StudentProfile struct {
	FullName   string
	Phone      string
	Semester   int
	RollNumber string
}

func (StudentProfile) profileRole() Role { return RoleStudent }

// TeacherProfile holds the teacher-domain attributes, 1:1 with a teacher
// user.
type TeacherProfile struct {
	FullName      string
	Phone         string
	Qualification string
}

func (TeacherProfile) profileRole() Role { return RoleTeacher }

// Store is the per-role identity storage capability. One implementation
// exists per role; a Directory selects among them by enumerated Role
// value, never by string interpolation into a query.
type Store interface {
	// Role returns the single role this store serves.
	Role() Role

	// GetByEmail retrieves a user by email, case-insensitively, with
	// DisplayName populated. Returns an error wrapping ErrNotFound
	// when no account with this role matches.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID with DisplayName populated.
	GetByID(ctx context.Context, id int64) (*User, error)

	// Create inserts the identity row and its role profile atomically
	// and returns the new user ID. profile must match the store's role
	// (nil for roles without a profile table). A uniqueness violation
	// on email returns an error wrapping ErrDuplicateEmail; neither
	// row persists.
	Create(ctx context.Context, u *User, profile Profile) (int64, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateStatus moves the account to status. Implementations only
	// persist; transition legality is checked by the caller via
	// Status.CanTransition.
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// Directory holds the per-role stores and performs the closed-switch
// role dispatch.
type Directory struct {
	admin   Store
	teacher Store
	student Store
}

// NewDirectory builds a Directory, verifying each store serves the role
// it is registered under.
func NewDirectory(admin, teacher, student Store) (*Directory, error) {
	for _, check := range []struct {
		store Store
		want  Role
	}{
		{admin, RoleAdmin},
		{teacher, RoleTeacher},
		{student, RoleStudent},
	} {
		if check.store == nil {
			return nil, oops.Code("IDENTITY_NIL_STORE").
				With("role", check.want.String()).
				Errorf("store for role %s is nil", check.want)
		}
		if got := check.store.Role(); got != check.want {
			return nil, oops.Code("IDENTITY_STORE_ROLE_MISMATCH").
				With("registered", check.want.String()).
				With("actual", got.String()).
				Errorf("store registered for %s serves %s", check.want, got)
		}
	}
	return &Directory{admin: admin, teacher: teacher, student: student}, nil
}

// ForRole returns the store serving role.
func (d *Directory) ForRole(role Role) (Store, error) {
	switch role {
	case RoleAdmin:
		return d.admin, nil
	case RoleTeacher:
		return d.teacher, nil
	case RoleStudent:
		return d.student, nil
	}
	return nil, oops.Code("IDENTITY_INVALID_ROLE").
		With("role", role.String()).
		Errorf("unknown role %q", role)
}

// EmailInUse reports whether any role already holds the email. This is
// the fast-path duplicate check only; the unique index on lower(email)
// is the authoritative guard against races.
func (d *Directory) EmailInUse(ctx context.Context, email string) (bool, error) {
	for _, store := range []Store{d.admin, d.teacher, d.student} {
		_, err := store.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return true, nil
		case IsNotFound(err):
			continue
		default:
			return false, oops.Code("IDENTITY_EMAIL_CHECK_FAILED").
				With("role", store.Role().String()).
				Wrap(err)
		}
	}
	return false, nil
}
