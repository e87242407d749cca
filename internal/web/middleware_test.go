// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/campusgate/internal/csrf"
	"github.com/campusgate/campusgate/internal/identity"
	"github.com/campusgate/campusgate/internal/session"
	"github.com/campusgate/campusgate/internal/web"
)

// guardedRouter mounts a trivial protected page behind the session and
// role middleware, the way a role area's page handlers would.
func guardedRouter(manager *session.Manager, role identity.Role) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(web.SessionMiddleware(manager, nil))
		r.Use(web.CSRFMiddleware(nil))
		r.Use(web.RequireRole(role))
		r.Get("/admin/dashboard", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: web.CookieName, Value: token}
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == web.CookieName {
			return cookie
		}
	}
	return nil
}

func TestSessionMiddleware_NewVisitorGetsCookie(t *testing.T) {
	manager := session.NewManager(session.NewMemoryStore())
	router := guardedRouter(manager, identity.RoleAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	cookie := responseCookie(t, rec)
	require.NotNil(t, cookie, "anonymous visitor must receive a session cookie")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// Anonymous, so the guard bounces to login.
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?reason="+web.ReasonLoginRequired, rec.Header().Get("Location"))
}

func TestSessionMiddleware_ResumesExistingSession(t *testing.T) {
	manager := session.NewManager(session.NewMemoryStore())
	router := guardedRouter(manager, identity.RoleAdmin)

	sess, err := manager.Start(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, sess.Login(context.Background(), 7, "admin", "Head Admin"))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(sessionCookie(sess.Token()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, responseCookie(t, rec), "an unchanged token must not be re-set")
}

func TestRequireRole_Redirects(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager := session.NewManager(session.NewMemoryStore(),
		session.WithClock(func() time.Time { return clock }))
	router := guardedRouter(manager, identity.RoleAdmin)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		if token != "" {
			req.AddCookie(sessionCookie(token))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("never authenticated", func(t *testing.T) {
		sess, err := manager.Start(context.Background(), "")
		require.NoError(t, err)

		rec := get(sess.Token())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?reason="+web.ReasonLoginRequired, rec.Header().Get("Location"))
	})

	t.Run("wrong role", func(t *testing.T) {
		sess, err := manager.Start(context.Background(), "")
		require.NoError(t, err)
		require.NoError(t, sess.Login(context.Background(), 3, "teacher", "T. Teacher"))

		rec := get(sess.Token())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?reason="+web.ReasonWrongRole, rec.Header().Get("Location"))
	})

	t.Run("expired session", func(t *testing.T) {
		sess, err := manager.Start(context.Background(), "")
		require.NoError(t, err)
		require.NoError(t, sess.Login(context.Background(), 4, "admin", "Head Admin"))

		clock = clock.Add(session.DefaultIdleTimeout + time.Minute)

		rec := get(sess.Token())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?reason="+web.ReasonExpired, rec.Header().Get("Location"))
	})

	t.Run("matching role passes", func(t *testing.T) {
		sess, err := manager.Start(context.Background(), "")
		require.NoError(t, err)
		require.NoError(t, sess.Login(context.Background(), 5, "admin", "Head Admin"))

		rec := get(sess.Token())
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCSRFMiddleware_RejectsBadToken(t *testing.T) {
	fx := newWebFixture(t)

	sess, err := fx.manager.Start(context.Background(), "")
	require.NoError(t, err)

	cases := []struct {
		name      string
		candidate string
	}{
		{"missing token", ""},
		{"tampered token", "deadbeef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{}
			if tc.candidate != "" {
				form.Set(csrf.FieldName, tc.candidate)
			}
			form.Set("email", "a@example.com")

			rec := fx.postForm(t, "/login", sess.Token(), form)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))

			// The rejection is surfaced as an ordinary flash message.
			resumed, err := fx.manager.Start(context.Background(), sess.Token())
			require.NoError(t, err)
			msg, ok, err := resumed.ConsumeFlash(context.Background(), web.FlashError)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, csrf.FailureMessage, msg)
		})
	}
}

func TestCSRFMiddleware_PassesMethodsWithoutState(t *testing.T) {
	manager := session.NewManager(session.NewMemoryStore())
	router := guardedRouter(manager, identity.RoleAdmin)

	sess, err := manager.Start(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, sess.Login(context.Background(), 9, "admin", "Head Admin"))

	// GET carries no csrf token and must not be challenged.
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", strings.NewReader(""))
	req.AddCookie(sessionCookie(sess.Token()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
