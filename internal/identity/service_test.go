// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/campusgate/internal/identity"
	"github.com/campusgate/campusgate/internal/identity/mocks"
	"github.com/campusgate/campusgate/internal/session"
	"github.com/campusgate/campusgate/pkg/errutil"
)

type serviceFixture struct {
	service  *identity.Service
	admin    *mocks.MockStore
	teacher  *mocks.MockStore
	student  *mocks.MockStore
	hasher   *mocks.MockHasher
	notifier *mocks.MockNotifier
	manager  *session.Manager
}

func newServiceFixture(t *testing.T, build func(*identity.Directory, identity.PasswordHasher, *mocks.MockNotifier) *identity.Service) *serviceFixture {
	t.Helper()

	admin := mocks.NewMockStore(identity.RoleAdmin)
	teacher := mocks.NewMockStore(identity.RoleTeacher)
	student := mocks.NewMockStore(identity.RoleStudent)

	dir, err := identity.NewDirectory(admin, teacher, student)
	require.NoError(t, err)

	hasher := &mocks.MockHasher{}
	notifier := &mocks.MockNotifier{}

	return &serviceFixture{
		service:  build(dir, hasher, notifier),
		admin:    admin,
		teacher:  teacher,
		student:  student,
		hasher:   hasher,
		notifier: notifier,
		manager:  session.NewManager(session.NewMemoryStore()),
	}
}

func newProductionFixture(t *testing.T) *serviceFixture {
	return newServiceFixture(t, func(dir *identity.Directory, h identity.PasswordHasher, n *mocks.MockNotifier) *identity.Service {
		return identity.NewService(dir, h, n, nil)
	})
}

func newDebugFixture(t *testing.T) *serviceFixture {
	return newServiceFixture(t, func(dir *identity.Directory, h identity.PasswordHasher, n *mocks.MockNotifier) *identity.Service {
		return identity.NewDebugService(dir, h, n, nil)
	})
}

func (f *serviceFixture) newSession(t *testing.T) *session.Context {
	t.Helper()
	sess, err := f.manager.Start(context.Background(), "")
	require.NoError(t, err)
	return sess
}

func notFoundErr() error {
	return oops.Code("IDENTITY_NOT_FOUND").Wrap(identity.ErrNotFound)
}

func activeStudent() *identity.User {
	return &identity.User{
		ID:           101,
		Email:        "priya@college.edu",
		Role:         identity.RoleStudent,
		Status:       identity.StatusActive,
		PasswordHash: "$argon2id$stored",
		DisplayName:  "Priya Sharma",
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newProductionFixture(t)
		f.student.On("GetByEmail", mock.Anything, "ghost@college.edu").Return(nil, notFoundErr())
		f.student.On("GetByEmail", mock.Anything, "priya@college.edu").Return(activeStudent(), nil)
		// The dummy hash is verified even for the unknown email.
		f.hasher.On("Verify", "wrong", mock.Anything).Return(false, nil).Twice()

		unknown, err := f.service.Login(ctx, f.newSession(t), "ghost@college.edu", "wrong", identity.RoleStudent)
		require.NoError(t, err)
		existing, err := f.service.Login(ctx, f.newSession(t), "priya@college.edu", "wrong", identity.RoleStudent)
		require.NoError(t, err)

		assert.False(t, unknown.OK)
		assert.False(t, existing.OK)
		assert.Equal(t, unknown.Message, existing.Message)
		assert.Equal(t, identity.MsgInvalidCredentials, unknown.Message)
		f.hasher.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("pending account is distinct from bad credentials", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		user.Status = identity.StatusPending
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Verify", "secret", user.PasswordHash).Return(true, nil)

		sess := f.newSession(t)
		result, err := f.service.Login(ctx, sess, user.Email, "secret", identity.RoleStudent)
		require.NoError(t, err)

		assert.False(t, result.OK)
		assert.Equal(t, identity.MsgPendingApproval, result.Message)
		assert.NotEqual(t, identity.MsgInvalidCredentials, result.Message)
		assert.False(t, sess.IsAuthenticated())
	})

	t.Run("suspended account has its own message", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		user.Status = identity.StatusSuspended
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Verify", "secret", user.PasswordHash).Return(true, nil)

		sess := f.newSession(t)
		result, err := f.service.Login(ctx, sess, user.Email, "secret", identity.RoleStudent)
		require.NoError(t, err)

		assert.False(t, result.OK)
		assert.Equal(t, identity.MsgSuspended, result.Message)
		assert.False(t, sess.IsAuthenticated())
	})

	t.Run("success authenticates the session and resolves the role", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Verify", "secret", user.PasswordHash).Return(true, nil)

		sess := f.newSession(t)
		anonToken := sess.Token()

		result, err := f.service.Login(ctx, sess, user.Email, "secret", identity.RoleStudent)
		require.NoError(t, err)

		assert.True(t, result.OK)
		assert.Equal(t, identity.RoleStudent, result.Role)
		assert.Equal(t, int64(101), result.UserID)
		assert.Equal(t, "Priya Sharma", result.DisplayName)

		assert.True(t, sess.IsAuthenticated())
		assert.Equal(t, "student", sess.CurrentRole())
		assert.NotEqual(t, anonToken, sess.Token(), "session token rotates on login")
	})

	t.Run("role is part of the lookup key", func(t *testing.T) {
		f := newProductionFixture(t)
		// Email exists as a student but login claims teacher.
		f.teacher.On("GetByEmail", mock.Anything, "priya@college.edu").Return(nil, notFoundErr())
		f.hasher.On("Verify", "secret", mock.Anything).Return(false, nil)

		result, err := f.service.Login(ctx, f.newSession(t), "priya@college.edu", "secret", identity.RoleTeacher)
		require.NoError(t, err)

		assert.False(t, result.OK)
		f.student.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("invalid role fails closed", func(t *testing.T) {
		f := newProductionFixture(t)
		_, err := f.service.Login(ctx, f.newSession(t), "x@college.edu", "pw", identity.Role("root"))
		errutil.AssertErrorCode(t, err, "IDENTITY_INVALID_ROLE")
	})

	t.Run("storage failure is operational, not a credential failure", func(t *testing.T) {
		f := newProductionFixture(t)
		f.student.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := f.service.Login(ctx, f.newSession(t), "x@college.edu", "pw", identity.RoleStudent)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	registration := identity.Registration{
		Email:    "new@college.edu",
		Password: "secret123",
		Profile: identity.StudentProfile{
			FullName:   "Arun Mehta",
			Phone:      "+919812345678",
			Semester:   3,
			RollNumber: "CS-2026-014",
		},
	}

	expectEmailFree := func(f *serviceFixture, email string) {
		for _, s := range []*mocks.MockStore{f.admin, f.teacher, f.student} {
			s.On("GetByEmail", mock.Anything, email).Return(nil, notFoundErr())
		}
	}

	t.Run("creates a pending student with profile", func(t *testing.T) {
		f := newProductionFixture(t)
		expectEmailFree(f, registration.Email)
		f.hasher.On("Hash", "secret123").Return("$argon2id$new", nil)
		f.student.On("Create", mock.Anything, mock.Anything, registration.Profile).
			Run(func(args mock.Arguments) {
				user := args.Get(1).(*identity.User)
				assert.Equal(t, identity.RoleStudent, user.Role)
				assert.Equal(t, identity.StatusPending, user.Status)
				assert.Equal(t, "$argon2id$new", user.PasswordHash)
			}).
			Return(int64(42), nil)

		result, err := f.service.Register(ctx, registration)
		require.NoError(t, err)

		assert.True(t, result.OK)
		assert.Equal(t, int64(42), result.UserID)
		assert.Equal(t, identity.MsgRegistered, result.Message)
	})

	t.Run("duplicate email fast path short-circuits before hashing", func(t *testing.T) {
		f := newProductionFixture(t)
		f.admin.On("GetByEmail", mock.Anything, registration.Email).
			Return(&identity.User{ID: 1, Role: identity.RoleAdmin}, nil)

		result, err := f.service.Register(ctx, registration)
		require.NoError(t, err)

		assert.False(t, result.OK)
		assert.Equal(t, identity.MsgDuplicateEmail, result.Message)
		f.hasher.AssertNotCalled(t, "Hash", mock.Anything)
		f.student.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("losing the insert race is a duplicate, not an error", func(t *testing.T) {
		f := newProductionFixture(t)
		expectEmailFree(f, registration.Email)
		f.hasher.On("Hash", "secret123").Return("$argon2id$new", nil)
		f.student.On("Create", mock.Anything, mock.Anything, registration.Profile).
			Return(int64(0), oops.Code("IDENTITY_DUPLICATE_EMAIL").Wrap(identity.ErrDuplicateEmail))

		result, err := f.service.Register(ctx, registration)
		require.NoError(t, err)

		assert.False(t, result.OK)
		assert.Equal(t, identity.MsgDuplicateEmail, result.Message)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		f := newProductionFixture(t)
		expectEmailFree(f, registration.Email)
		f.hasher.On("Hash", "secret123").Return("$argon2id$new", nil)
		f.student.On("Create", mock.Anything, mock.Anything, registration.Profile).
			Return(int64(0), errors.New("connection refused"))

		_, err := f.service.Register(ctx, registration)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("outcome is identical whether the account exists or not", func(t *testing.T) {
		f := newProductionFixture(t)
		f.student.On("GetByEmail", mock.Anything, "ghost@college.edu").Return(nil, notFoundErr())

		user := activeStudent()
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Hash", mock.Anything).Return("$argon2id$temp", nil)
		f.student.On("UpdatePassword", mock.Anything, user.ID, "$argon2id$temp").Return(nil)
		f.notifier.On("TemporaryPassword", mock.Anything, user.Email, mock.Anything).Return(nil)

		missing, err := f.service.ResetPassword(ctx, "ghost@college.edu", identity.RoleStudent)
		require.NoError(t, err)
		found, err := f.service.ResetPassword(ctx, user.Email, identity.RoleStudent)
		require.NoError(t, err)

		assert.Equal(t, missing.OK, found.OK)
		assert.Equal(t, missing.Message, found.Message)
		assert.Equal(t, identity.MsgResetIssued, found.Message)
	})

	t.Run("delivers the plaintext through the notifier only", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Hash", mock.Anything).Return("$argon2id$temp", nil)
		f.student.On("UpdatePassword", mock.Anything, user.ID, "$argon2id$temp").Return(nil)

		var delivered string
		f.notifier.On("TemporaryPassword", mock.Anything, user.Email, mock.Anything).
			Run(func(args mock.Arguments) { delivered = args.String(2) }).
			Return(nil)

		result, err := f.service.ResetPassword(ctx, user.Email, identity.RoleStudent)
		require.NoError(t, err)

		assert.Len(t, delivered, identity.TempPasswordLength)
		assert.Empty(t, result.TempPassword, "production result must not carry the credential")
	})

	t.Run("debug service exposes the temporary password", func(t *testing.T) {
		f := newDebugFixture(t)
		user := activeStudent()
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Hash", mock.Anything).Return("$argon2id$temp", nil)
		f.student.On("UpdatePassword", mock.Anything, user.ID, "$argon2id$temp").Return(nil)

		var delivered string
		f.notifier.On("TemporaryPassword", mock.Anything, user.Email, mock.Anything).
			Run(func(args mock.Arguments) { delivered = args.String(2) }).
			Return(nil)

		result, err := f.service.ResetPassword(ctx, user.Email, identity.RoleStudent)
		require.NoError(t, err)

		assert.Equal(t, delivered, result.TempPassword)
		assert.Len(t, result.TempPassword, identity.TempPasswordLength)
	})

	t.Run("delivery failure keeps the uniform outcome", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		f.hasher.On("Hash", mock.Anything).Return("$argon2id$temp", nil)
		f.student.On("UpdatePassword", mock.Anything, user.ID, "$argon2id$temp").Return(nil)
		f.notifier.On("TemporaryPassword", mock.Anything, user.Email, mock.Anything).
			Return(errors.New("smtp unreachable"))

		result, err := f.service.ResetPassword(ctx, user.Email, identity.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, identity.MsgResetIssued, result.Message)
	})
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("pending student is activated", func(t *testing.T) {
		f := newProductionFixture(t)
		user := activeStudent()
		user.Status = identity.StatusPending
		f.student.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		f.student.On("UpdateStatus", mock.Anything, user.ID, identity.StatusActive).Return(nil)

		require.NoError(t, f.service.Approve(ctx, identity.RoleStudent, user.ID, identity.StatusActive))
		f.student.AssertExpectations(t)
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		f := newProductionFixture(t)
		f.student.On("GetByID", mock.Anything, int64(101)).Return(activeStudent(), nil)

		err := f.service.Approve(ctx, identity.RoleStudent, 101, identity.StatusPending)
		errutil.AssertErrorCode(t, err, "IDENTITY_INVALID_TRANSITION")
		f.student.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newProductionFixture(t)
		f.student.On("GetByID", mock.Anything, int64(999)).Return(nil, notFoundErr())

		err := f.service.Approve(ctx, identity.RoleStudent, 999, identity.StatusActive)
		errutil.AssertErrorCode(t, err, "IDENTITY_NOT_FOUND")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newProductionFixture(t)

	user := activeStudent()
	f.student.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Verify", "secret", user.PasswordHash).Return(true, nil)

	sess := f.newSession(t)
	_, err := f.service.Login(ctx, sess, user.Email, "secret", identity.RoleStudent)
	require.NoError(t, err)
	require.True(t, sess.IsAuthenticated())

	require.NoError(t, f.service.Logout(ctx, sess))

	assert.False(t, sess.IsAuthenticated())
	assert.Error(t, sess.RequireRole("student"))
	assert.Error(t, sess.RequireRole("admin"))
}

// Round trip: register, force status active, then log in with the real
// hasher end to end.
func TestService_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()

	admin := mocks.NewMockStore(identity.RoleAdmin)
	teacher := mocks.NewMockStore(identity.RoleTeacher)
	student := mocks.NewMockStore(identity.RoleStudent)
	dir, err := identity.NewDirectory(admin, teacher, student)
	require.NoError(t, err)

	notifier := &mocks.MockNotifier{}
	service := identity.NewService(dir, identity.NewArgon2idHasher(), notifier, nil)

	for _, s := range []*mocks.MockStore{admin, teacher, student} {
		s.On("GetByEmail", mock.Anything, "arun@college.edu").Return(nil, notFoundErr()).Once()
	}

	var storedHash string
	student.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			storedHash = args.Get(1).(*identity.User).PasswordHash
		}).
		Return(int64(7), nil)

	reg, err := service.Register(ctx, identity.Registration{
		Email:    "arun@college.edu",
		Password: "secret123",
		Profile:  identity.StudentProfile{FullName: "Arun Mehta"},
	})
	require.NoError(t, err)
	require.True(t, reg.OK)

	// Admin approval happened; the store now serves the active account.
	student.On("GetByEmail", mock.Anything, "arun@college.edu").Return(&identity.User{
		ID:           7,
		Email:        "arun@college.edu",
		Role:         identity.RoleStudent,
		Status:       identity.StatusActive,
		PasswordHash: storedHash,
		DisplayName:  "Arun Mehta",
	}, nil)

	manager := session.NewManager(session.NewMemoryStore())
	sess, err := manager.Start(ctx, "")
	require.NoError(t, err)

	result, err := service.Login(ctx, sess, "arun@college.edu", "secret123", identity.RoleStudent)
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, identity.RoleStudent, result.Role)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, int64(7), sess.CurrentUserID())
}
