// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/campusgate/campusgate/internal/csrf"
)

// Access-control sentinels returned by Context.RequireRole.
// Each maps to a distinct redirect reason in the web layer.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrWrongRole        = errors.New("wrong role")
)

// Manager resumes and creates sessions against a Store. Expiry is lazy:
// an idle-expired session is destroyed the next time its token shows up.
type Manager struct {
	store       Store
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	// locks serializes read-modify-write cycles per session ID so
	// concurrent requests on one session cannot lose flash updates.
	locks sync.Map // ulid.ULID -> *sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTimeout sets the rolling inactivity window.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager with DefaultIdleTimeout unless overridden.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IdleTimeout returns the configured inactivity window.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Start resumes the session identified by token, or creates a fresh
// anonymous one when token is empty, unknown, or idle-expired. An expired
// authenticated session is destroyed and replaced; the returned Context
// reports Expired() == true so the caller can explain the forced logout.
func (m *Manager) Start(ctx context.Context, token string) (*Context, error) {
	now := m.now()

	if token != "" {
		sess, err := m.store.GetByTokenHash(ctx, HashToken(token))
		switch {
		case err == nil:
			return m.resume(ctx, now, token, sess.ID)

		case errors.Is(err, ErrNotFound):
			// Unknown token, fall through to a fresh session.

		default:
			return nil, oops.Code("SESSION_RESUME_FAILED").Wrap(err)
		}
	}

	return m.create(ctx, now, false)
}

// resume finishes resumption under the per-session lock. The session is
// re-read inside the lock so the activity touch cannot write back state
// that a concurrent request has since changed.
func (m *Manager) resume(ctx context.Context, now time.Time, token string, id ulid.ULID) (*Context, error) {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		// Destroyed between lookup and lock acquisition.
		return m.create(ctx, now, false)
	case err != nil:
		return nil, oops.Code("SESSION_RESUME_FAILED").
			With("id", id.String()).
			Wrap(err)
	}

	if sess.TokenHash != HashToken(token) {
		// A concurrent login rotated the token; the presented cookie is
		// stale and must not resume the rotated session.
		return m.create(ctx, now, false)
	}

	if !sess.IdleExpiredAt(now, m.idleTimeout) {
		sess.LastSeenAt = now
		if uerr := m.store.Update(ctx, sess); uerr != nil {
			return nil, oops.Code("SESSION_TOUCH_FAILED").
				With("id", sess.ID.String()).
				Wrap(uerr)
		}
		return &Context{manager: m, session: sess, token: token}, nil
	}

	wasAuthenticated := sess.Authenticated
	if derr := m.store.Delete(ctx, sess.ID); derr != nil && !errors.Is(derr, ErrNotFound) {
		return nil, oops.Code("SESSION_EXPIRE_FAILED").
			With("id", sess.ID.String()).
			Wrap(derr)
	}
	m.locks.Delete(sess.ID)
	return m.create(ctx, now, wasAuthenticated)
}

// Sweep removes all idle-expired sessions. Intended for a periodic
// background task; lazy expiry in Start keeps correctness without it.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	deleted, err := m.store.DeleteIdle(ctx, m.now().Add(-m.idleTimeout))
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return deleted, nil
}

func (m *Manager) create(ctx context.Context, now time.Time, expired bool) (*Context, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	csrfToken, err := csrf.Generate()
	if err != nil {
		return nil, err
	}

	sess, err := NewSession(hash, csrfToken, now)
	if err != nil {
		return nil, err
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}

	return &Context{manager: m, session: sess, token: token, expired: expired}, nil
}

// sessionLock returns the mutex guarding a session's read-modify-write
// cycles.
func (m *Manager) sessionLock(id ulid.ULID) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Context is the per-request view of one session. It is not safe for
// concurrent use; each request gets its own from Manager.Start.
type Context struct {
	manager *Manager
	session *Session
	token   string
	expired bool
}

// Token returns the plaintext token for the session cookie.
func (c *Context) Token() string { return c.token }

// ID returns the session ID.
func (c *Context) ID() ulid.ULID { return c.session.ID }

// IsAuthenticated reports whether a user is logged in on this session.
func (c *Context) IsAuthenticated() bool { return c.session.Authenticated }

// Expired reports whether this context replaced an authenticated session
// that idle-expired. Used to show "logged out due to inactivity".
func (c *Context) Expired() bool { return c.expired }

// CurrentUserID returns the logged-in user's ID, or 0 when anonymous.
func (c *Context) CurrentUserID() int64 { return c.session.UserID }

// CurrentRole returns the logged-in user's role, or "" when anonymous.
func (c *Context) CurrentRole() string { return c.session.Role }

// DisplayName returns the logged-in user's display name, or "" when
// anonymous.
func (c *Context) DisplayName() string { return c.session.DisplayName }

// CSRFToken returns the session's current CSRF token.
func (c *Context) CSRFToken() string { return c.session.CSRFToken }

// Login binds the session to a verified user. The session token and CSRF
// token are both rotated so nothing issued pre-authentication stays valid.
func (c *Context) Login(ctx context.Context, userID int64, role, displayName string) error {
	if userID <= 0 {
		return oops.Code("SESSION_INVALID_USER").
			With("user_id", userID).
			Errorf("user ID must be positive")
	}
	if role == "" {
		return oops.Code("SESSION_INVALID_ROLE").Errorf("role cannot be empty")
	}

	lock := c.manager.sessionLock(c.session.ID)
	lock.Lock()
	defer lock.Unlock()

	// Mutate the stored state, not this request's snapshot, so a flash
	// written by a concurrent request survives the login.
	sess, err := c.manager.store.Get(ctx, c.session.ID)
	if err != nil {
		return oops.Code("SESSION_LOGIN_FAILED").
			With("user_id", userID).
			Wrap(err)
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return err
	}
	csrfToken, err := csrf.Generate()
	if err != nil {
		return err
	}

	sess.TokenHash = hash
	sess.Authenticated = true
	sess.UserID = userID
	sess.Role = role
	sess.DisplayName = displayName
	sess.CSRFToken = csrfToken
	sess.LastSeenAt = c.manager.now()

	if err := c.manager.store.Update(ctx, sess); err != nil {
		return oops.Code("SESSION_LOGIN_FAILED").
			With("user_id", userID).
			Wrap(err)
	}

	c.session = sess
	c.token = token
	c.expired = false
	return nil
}

// Logout destroys the session record and replaces this context with a
// fresh anonymous session. Safe to call on an anonymous session.
func (c *Context) Logout(ctx context.Context) error {
	lock := c.manager.sessionLock(c.session.ID)
	lock.Lock()

	err := c.manager.store.Delete(ctx, c.session.ID)
	lock.Unlock()
	c.manager.locks.Delete(c.session.ID)

	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_LOGOUT_FAILED").
			With("id", c.session.ID.String()).
			Wrap(err)
	}

	fresh, err := c.manager.create(ctx, c.manager.now(), false)
	if err != nil {
		return err
	}
	c.session = fresh.session
	c.token = fresh.token
	c.expired = false
	return nil
}

// RequireRole enforces access control for a protected area. The three
// failure modes are distinct so callers can redirect with the right
// message: expired session, never logged in, or logged in as another role.
func (c *Context) RequireRole(role string) error {
	switch {
	case c.expired:
		return oops.Code("SESSION_EXPIRED").Wrap(ErrSessionExpired)
	case !c.session.Authenticated:
		return oops.Code("SESSION_NOT_AUTHENTICATED").Wrap(ErrNotAuthenticated)
	case c.session.Role != role:
		return oops.Code("SESSION_WRONG_ROLE").
			With("role", c.session.Role).
			With("required", role).
			Wrap(ErrWrongRole)
	}
	return nil
}

// SetFlash stores a one-shot message under key, replacing any previous
// value. The session is re-read under the lock so two requests setting
// different keys both land.
func (c *Context) SetFlash(ctx context.Context, key, value string) error {
	lock := c.manager.sessionLock(c.session.ID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.manager.store.Get(ctx, c.session.ID)
	if err != nil {
		return oops.Code("SESSION_FLASH_SET_FAILED").
			With("key", key).
			Wrap(err)
	}

	sess.Flash[key] = value
	if err := c.manager.store.Update(ctx, sess); err != nil {
		return oops.Code("SESSION_FLASH_SET_FAILED").
			With("key", key).
			Wrap(err)
	}
	c.session = sess
	return nil
}

// ConsumeFlash returns and removes the flash message under key. The
// second return is false when no message was set.
func (c *Context) ConsumeFlash(ctx context.Context, key string) (string, bool, error) {
	lock := c.manager.sessionLock(c.session.ID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.manager.store.Get(ctx, c.session.ID)
	if err != nil {
		return "", false, oops.Code("SESSION_FLASH_CONSUME_FAILED").
			With("key", key).
			Wrap(err)
	}

	value, ok := sess.Flash[key]
	if !ok {
		c.session = sess
		return "", false, nil
	}

	delete(sess.Flash, key)
	if err := c.manager.store.Update(ctx, sess); err != nil {
		return "", false, oops.Code("SESSION_FLASH_CONSUME_FAILED").
			With("key", key).
			Wrap(err)
	}
	c.session = sess
	return value, true, nil
}
