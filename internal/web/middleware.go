// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusgate/campusgate/internal/csrf"
	"github.com/campusgate/campusgate/internal/identity"
	"github.com/campusgate/campusgate/internal/observability"
	"github.com/campusgate/campusgate/internal/session"
	"github.com/campusgate/campusgate/pkg/errutil"
)

// CookieName is the session cookie. Its value is the opaque plaintext
// token; only the SHA-256 hash is stored server-side.
const CookieName = "campusgate_session"

// Flash keys shared between handlers and the page layer.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Redirect reason codes appended to the login URL so the page can show
// an accurate message.
const (
	ReasonExpired       = "expired"
	ReasonLoginRequired = "login_required"
	ReasonWrongRole     = "wrong_role"
)

// LoginPath is the redirect target for every access-control failure.
// Role is inferred from the session, never from the URL.
const LoginPath = "/login"

type sessionKey struct{}

// SessionFromContext returns the session context injected by
// SessionMiddleware, or nil when the middleware did not run.
func SessionFromContext(ctx context.Context) *session.Context {
	sess, _ := ctx.Value(sessionKey{}).(*session.Context)
	return sess
}

// SessionMiddleware resolves the session cookie through the manager and
// injects the resulting session context into the request. A missing,
// unknown, or expired cookie yields a fresh anonymous session; the
// cookie is re-set whenever the token changed.
func SessionMiddleware(manager *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(CookieName); err == nil {
				token = cookie.Value
			}

			sess, err := manager.Start(r.Context(), token)
			if err != nil {
				errutil.LogError(logger, "session start failed", err)
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			if sess.Token() != token {
				SetSessionCookie(w, sess.Token())
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie writes the session cookie. Called again by handlers
// after login and logout, when the token rotates mid-request.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireRole gates a role-restricted area. It must run after
// SessionMiddleware. Each failure mode redirects to the login page with
// its own reason code: an expired session, a session that was never
// authenticated, and a session authenticated as another role are
// different situations the user needs told apart.
func RequireRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				redirectToLogin(w, r, ReasonLoginRequired)
				return
			}

			err := sess.RequireRole(role.String())
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, session.ErrSessionExpired):
				redirectToLogin(w, r, ReasonExpired)
			case errors.Is(err, session.ErrWrongRole):
				redirectToLogin(w, r, ReasonWrongRole)
			default:
				redirectToLogin(w, r, ReasonLoginRequired)
			}
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, LoginPath+"?reason="+reason, http.StatusSeeOther)
}

// CSRFMiddleware verifies the hidden token field on every state-changing
// request before any handler reads the rest of the form. Failure is
// deliberately uniform: missing, stale, and tampered tokens all produce
// the same flash message and a redirect back to the submitted path.
func CSRFMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r.Context())
			if sess == nil {
				redirectToLogin(w, r, ReasonLoginRequired)
				return
			}

			if err := r.ParseForm(); err != nil {
				rejectForgery(w, r, sess, logger)
				return
			}
			if !csrf.Verify(sess.CSRFToken(), r.PostForm.Get(csrf.FieldName)) {
				rejectForgery(w, r, sess, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectForgery(w http.ResponseWriter, r *http.Request, sess *session.Context, logger *slog.Logger) {
	observability.RecordCSRFFailure(r.URL.Path)
	if err := sess.SetFlash(r.Context(), FlashError, csrf.FailureMessage); err != nil {
		errutil.LogWarn(logger, "flash set failed after csrf rejection", err)
	}
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}
