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
	"github.com/campusgate/campusgate/pkg/errutil"
)

func newTestDirectory(t *testing.T) (*identity.Directory, *mocks.MockStore, *mocks.MockStore, *mocks.MockStore) {
	t.Helper()
	admin := mocks.NewMockStore(identity.RoleAdmin)
	teacher := mocks.NewMockStore(identity.RoleTeacher)
	student := mocks.NewMockStore(identity.RoleStudent)

	dir, err := identity.NewDirectory(admin, teacher, student)
	require.NoError(t, err)
	return dir, admin, teacher, student
}

func TestNewDirectory(t *testing.T) {
	t.Run("nil store rejected", func(t *testing.T) {
		_, err := identity.NewDirectory(nil,
			mocks.NewMockStore(identity.RoleTeacher),
			mocks.NewMockStore(identity.RoleStudent))
		errutil.AssertErrorCode(t, err, "IDENTITY_NIL_STORE")
	})

	t.Run("role mismatch rejected", func(t *testing.T) {
		_, err := identity.NewDirectory(
			mocks.NewMockStore(identity.RoleAdmin),
			mocks.NewMockStore(identity.RoleStudent), // wrong slot
			mocks.NewMockStore(identity.RoleStudent))
		errutil.AssertErrorCode(t, err, "IDENTITY_STORE_ROLE_MISMATCH")
	})
}

func TestDirectory_ForRole(t *testing.T) {
	dir, admin, teacher, student := newTestDirectory(t)

	for role, want := range map[identity.Role]*mocks.MockStore{
		identity.RoleAdmin:   admin,
		identity.RoleTeacher: teacher,
		identity.RoleStudent: student,
	} {
		got, err := dir.ForRole(role)
		require.NoError(t, err)
		assert.Same(t, want, got)
	}

	_, err := dir.ForRole(identity.Role("root"))
	errutil.AssertErrorCode(t, err, "IDENTITY_INVALID_ROLE")
}

func TestDirectory_EmailInUse(t *testing.T) {
	ctx := context.Background()
	notFound := oops.Code("IDENTITY_NOT_FOUND").Wrap(identity.ErrNotFound)

	t.Run("free in all roles", func(t *testing.T) {
		dir, admin, teacher, student := newTestDirectory(t)
		for _, s := range []*mocks.MockStore{admin, teacher, student} {
			s.On("GetByEmail", mock.Anything, "new@college.edu").Return(nil, notFound)
		}

		inUse, err := dir.EmailInUse(ctx, "new@college.edu")
		require.NoError(t, err)
		assert.False(t, inUse)
	})

	t.Run("taken by another role", func(t *testing.T) {
		dir, admin, teacher, _ := newTestDirectory(t)
		admin.On("GetByEmail", mock.Anything, "shared@college.edu").Return(nil, notFound)
		teacher.On("GetByEmail", mock.Anything, "shared@college.edu").
			Return(&identity.User{ID: 9, Role: identity.RoleTeacher}, nil)

		inUse, err := dir.EmailInUse(ctx, "shared@college.edu")
		require.NoError(t, err)
		assert.True(t, inUse)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		dir, admin, _, _ := newTestDirectory(t)
		admin.On("GetByEmail", mock.Anything, "x@college.edu").
			Return(nil, errors.New("connection refused"))

		_, err := dir.EmailInUse(ctx, "x@college.edu")
		errutil.AssertErrorCode(t, err, "IDENTITY_EMAIL_CHECK_FAILED")
	})
}
