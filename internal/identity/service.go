// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/campusgate/campusgate/internal/notify"
	"github.com/campusgate/campusgate/internal/session"
	"github.com/campusgate/campusgate/pkg/errutil"
)

// User-facing outcome messages. Login failure text is deliberately
// identical for unknown email and wrong password; account status
// messages are distinct because they describe legitimate states the
// user must understand, not secrets.
const (
	MsgInvalidCredentials = "Invalid email or password."
	MsgPendingApproval    = "Your account is awaiting approval."
	MsgSuspended          = "Your account has been suspended. Contact the administrator."
	MsgRegistered         = "Registration submitted. An administrator will review your account."
	MsgDuplicateEmail     = "An account with this email already exists."
	MsgResetIssued        = "If an account with this email exists, a temporary password has been issued."
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginResult is the structured login outcome. OK implies Role, UserID,
// and DisplayName are set and the session is authenticated; otherwise
// Message carries the user-facing failure text.
type LoginResult struct {
	OK          bool
	Role        Role
	UserID      int64
	DisplayName string
	Message     string
}

// Registration is the input to Register after form validation.
type Registration struct {
	Email    string
	Password string
	Profile  StudentProfile
}

// RegisterResult is the structured registration outcome.
type RegisterResult struct {
	OK      bool
	UserID  int64
	Message string
}

// ResetResult is the structured password-reset outcome. TempPassword is
// populated only when the service was built with NewDebugService; the
// production path delivers it through the Notifier alone.
type ResetResult struct {
	OK           bool
	Message      string
	TempPassword string
}

// Service orchestrates login, registration, logout, and password reset.
// It is the only component that mutates identity or credential state.
type Service struct {
	directory *Directory
	hasher    PasswordHasher
	notifier  notify.Notifier
	logger    *slog.Logger
	debug     bool
}

// NewService creates a production Service: temporary passwords leave
// only through the notifier.
func NewService(directory *Directory, hasher PasswordHasher, notifier notify.Notifier, logger *slog.Logger) *Service {
	return newService(directory, hasher, notifier, logger, false)
}

// NewDebugService creates a Service that additionally returns the
// plaintext temporary password in ResetResult. Development only.
func NewDebugService(directory *Directory, hasher PasswordHasher, notifier notify.Notifier, logger *slog.Logger) *Service {
	return newService(directory, hasher, notifier, logger, true)
}

func newService(directory *Directory, hasher PasswordHasher, notifier notify.Notifier, logger *slog.Logger, debug bool) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		directory: directory,
		hasher:    hasher,
		notifier:  notifier,
		logger:    logger,
		debug:     debug,
	}
}

// Login authenticates email+password against the claimed role and, on
// success, binds the session context to the resolved identity. The role
// is part of the lookup key: the same email in another role's store
// never cross-matches. Unknown emails still pay for a hash verification
// so the failure shape stays constant.
func (s *Service) Login(ctx context.Context, sess *session.Context, email, password string, role Role) (*LoginResult, error) {
	store, err := s.directory.ForRole(role)
	if err != nil {
		return nil, err
	}

	user, lookupErr := store.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !IsNotFound(lookupErr) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				With("role", role.String()).
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// Dummy-hash verification errors collapse into the generic failure.
		if !userExists {
			return &LoginResult{Message: MsgInvalidCredentials}, nil
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return &LoginResult{Message: MsgInvalidCredentials}, nil
	}

	// Status is checked after password verification so the timing shape
	// of a credential failure does not depend on account state.
	switch user.Status {
	case StatusPending:
		return &LoginResult{Message: MsgPendingApproval}, nil
	case StatusSuspended:
		return &LoginResult{Message: MsgSuspended}, nil
	case StatusActive:
		// authenticable
	default:
		return nil, oops.Code("AUTH_UNKNOWN_STATUS").
			With("status", user.Status.String()).
			With("user_id", user.ID).
			Errorf("account in unknown status")
	}

	if err := sess.Login(ctx, user.ID, role.String(), user.DisplayName); err != nil {
		return nil, oops.Code("AUTH_SESSION_BIND_FAILED").
			With("user_id", user.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID, "role", role.String())

	return &LoginResult{
		OK:          true,
		Role:        role,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
	}, nil
}

// Register creates a pending student account with its profile in one
// transaction. Registration is student-only; other roles are provisioned
// by the administrator. The duplicate-email fast path is advisory; the
// unique index on lower(email) is the authoritative guard.
func (s *Service) Register(ctx context.Context, reg Registration) (*RegisterResult, error) {
	inUse, err := s.directory.EmailInUse(ctx, reg.Email)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "duplicate email check").
			Wrap(err)
	}
	if inUse {
		return &RegisterResult{Message: MsgDuplicateEmail}, nil
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := &User{
		Email:        reg.Email,
		Role:         RoleStudent,
		Status:       StatusPending,
		PasswordHash: hash,
	}

	store, err := s.directory.ForRole(RoleStudent)
	if err != nil {
		return nil, err
	}

	id, err := store.Create(ctx, user, reg.Profile)
	if err != nil {
		if IsDuplicateEmail(err) {
			// Lost the race against a concurrent registration.
			return &RegisterResult{Message: MsgDuplicateEmail}, nil
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create identity").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "student registered", "user_id", id)

	return &RegisterResult{OK: true, UserID: id, Message: MsgRegistered}, nil
}

// ResetPassword issues a new temporary password for email+role, persists
// its hash, and delivers the plaintext through the notifier. The outcome
// is byte-identical whether or not the account exists; only the debug
// service exposes the plaintext in the result.
func (s *Service) ResetPassword(ctx context.Context, email string, role Role) (*ResetResult, error) {
	store, err := s.directory.ForRole(role)
	if err != nil {
		return nil, err
	}

	user, err := store.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return &ResetResult{OK: true, Message: MsgResetIssued}, nil
		}
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "get user by email").
			With("role", role.String()).
			Wrap(err)
	}

	tempPassword, err := GenerateTempPassword()
	if err != nil {
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "generate temporary password").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash temporary password").
			Wrap(err)
	}

	if err := store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, oops.Code("AUTH_RESET_FAILED").
			With("operation", "update password").
			With("user_id", user.ID).
			Wrap(err)
	}

	// Delivery failure must not reveal account existence through the
	// response; log it and keep the uniform outcome.
	if err := s.notifier.TemporaryPassword(ctx, user.Email, tempPassword); err != nil {
		errutil.LogWarn(s.logger, "temporary password delivery failed", err)
	}

	result := &ResetResult{OK: true, Message: MsgResetIssued}
	if s.debug {
		result.TempPassword = tempPassword
	}
	return result, nil
}

// Approve moves an account along the status machine, validating the
// transition. This is the admin approval surface for pending students.
func (s *Service) Approve(ctx context.Context, role Role, userID int64, next Status) error {
	if !next.Valid() {
		return oops.Code("IDENTITY_INVALID_STATUS").
			With("status", next.String()).
			Errorf("unknown status %q", next)
	}

	store, err := s.directory.ForRole(role)
	if err != nil {
		return err
	}

	user, err := store.GetByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return oops.Code("IDENTITY_NOT_FOUND").
				With("user_id", userID).
				Wrap(err)
		}
		return oops.Code("AUTH_STATUS_CHANGE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !user.Status.CanTransition(next) {
		return oops.Code("IDENTITY_INVALID_TRANSITION").
			With("from", user.Status.String()).
			With("to", next.String()).
			Errorf("cannot move account from %s to %s", user.Status, next)
	}

	if err := store.UpdateStatus(ctx, userID, next); err != nil {
		return oops.Code("AUTH_STATUS_CHANGE_FAILED").
			With("operation", "update status").
			With("user_id", userID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account status changed",
		"user_id", userID, "from", user.Status.String(), "to", next.String())
	return nil
}

// Logout delegates to the session context, destroying the server-side
// record and rotating to a fresh anonymous session.
func (s *Service) Logout(ctx context.Context, sess *session.Context) error {
	if err := sess.Logout(ctx); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").Wrap(err)
	}
	return nil
}
