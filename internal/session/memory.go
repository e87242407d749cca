// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments. Sessions do not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[ulid.ULID]*Session
	byHash map[string]ulid.ULID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[ulid.ULID]*Session),
		byHash: make(map[string]ulid.ULID),
	}
}

// Create stores a new session.
func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[sess.ID]; exists {
		return oops.Code("SESSION_DUPLICATE_ID").
			With("id", sess.ID.String()).
			Errorf("session already exists")
	}
	if _, exists := s.byHash[sess.TokenHash]; exists {
		return oops.Code("SESSION_DUPLICATE_TOKEN").
			Errorf("token hash already in use")
	}

	s.byID[sess.ID] = sess.Clone()
	s.byHash[sess.TokenHash] = sess.ID
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(_ context.Context, id ulid.ULID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(ErrNotFound)
	}
	return sess.Clone(), nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *MemoryStore) GetByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	return s.byID[id].Clone(), nil
}

// Update persists the full session state, re-indexing a rotated token hash.
func (s *MemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[sess.ID]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", sess.ID.String()).
			Wrap(ErrNotFound)
	}

	if stored.TokenHash != sess.TokenHash {
		if owner, exists := s.byHash[sess.TokenHash]; exists && owner != sess.ID {
			return oops.Code("SESSION_DUPLICATE_TOKEN").
				Errorf("token hash already in use")
		}
		delete(s.byHash, stored.TokenHash)
		s.byHash[sess.TokenHash] = sess.ID
	}

	s.byID[sess.ID] = sess.Clone()
	return nil
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(ErrNotFound)
	}
	delete(s.byHash, stored.TokenHash)
	delete(s.byID, id)
	return nil
}

// DeleteIdle removes sessions last seen before cutoff.
func (s *MemoryStore) DeleteIdle(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, sess := range s.byID {
		if sess.LastSeenAt.Before(cutoff) {
			delete(s.byHash, sess.TokenHash)
			delete(s.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
