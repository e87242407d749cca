// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package mocks provides testify mocks for identity collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/campusgate/campusgate/internal/identity"
	"github.com/campusgate/campusgate/internal/notify"
)

// MockStore is a testify mock for identity.Store.
type MockStore struct {
	mock.Mock

	// StoreRole is returned by Role without expectation bookkeeping;
	// every store call site asks for it.
	StoreRole identity.Role
}

// NewMockStore creates a MockStore serving role.
func NewMockStore(role identity.Role) *MockStore {
	return &MockStore{StoreRole: role}
}

func (m *MockStore) Role() identity.Role { return m.StoreRole }

func (m *MockStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, u *identity.User, profile identity.Profile) (int64, error) {
	args := m.Called(ctx, u, profile)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockStore) UpdateStatus(ctx context.Context, id int64, status identity.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockHasher is a testify mock for identity.PasswordHasher.
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockNotifier is a testify mock for notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) TemporaryPassword(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

// Compile-time interface checks.
var (
	_ identity.Store          = (*MockStore)(nil)
	_ identity.PasswordHasher = (*MockHasher)(nil)
	_ notify.Notifier         = (*MockNotifier)(nil)
)
