// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package web exposes the authentication entry points as HTTP handlers.
// Page rendering lives elsewhere: these handlers validate, call the auth
// service, set flash messages, and redirect.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusgate/campusgate/internal/identity"
	"github.com/campusgate/campusgate/internal/observability"
	"github.com/campusgate/campusgate/internal/session"
	"github.com/campusgate/campusgate/internal/validate"
	"github.com/campusgate/campusgate/pkg/errutil"
)

// MsgServerError is the generic operational failure shown to the user.
// Details go to the log, never to the page.
const MsgServerError = "Something went wrong. Please try again."

const roleSpec = "required|in:admin,teacher,student"

var (
	loginRules = validate.MustRuleset(
		validate.FieldRules{Field: "email", Spec: "required|email"},
		validate.FieldRules{Field: "password", Spec: "required|min:6"},
		validate.FieldRules{Field: "role", Spec: roleSpec},
	)

	registerRules = validate.MustRuleset(
		validate.FieldRules{Field: "full_name", Spec: "required|min:3|max:100"},
		validate.FieldRules{Field: "email", Spec: "required|email"},
		validate.FieldRules{Field: "phone", Spec: "required|phone"},
		validate.FieldRules{Field: "semester", Spec: "required|integer|min:1|max:8"},
		validate.FieldRules{Field: "roll_number", Spec: "required|max:30"},
		validate.FieldRules{Field: "password", Spec: "required|min:6|max:72"},
		validate.FieldRules{Field: "confirm_password", Spec: "required|same:password"},
	)

	resetRules = validate.MustRuleset(
		validate.FieldRules{Field: "email", Spec: "required|email"},
		validate.FieldRules{Field: "role", Spec: roleSpec},
	)
)

// Server wires the session manager and auth service into HTTP routes.
type Server struct {
	sessions *session.Manager
	auth     *identity.Service
	metrics  *observability.Metrics
	registry *prometheus.Registry
	isReady  observability.ReadinessChecker
	logger   *slog.Logger
}

// NewServer creates a Server. The registry backs GET /metrics; isReady
// backs the readiness probe (nil means always ready).
func NewServer(
	sessions *session.Manager,
	auth *identity.Service,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
	isReady observability.ReadinessChecker,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: sessions,
		auth:     auth,
		metrics:  metrics,
		registry: registry,
		isReady:  isReady,
		logger:   logger,
	}
}

// Router builds the HTTP routing table. Observability endpoints sit
// outside the session middleware; everything state-changing sits behind
// both the session and CSRF middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", observability.LivenessHandler)
	r.Get("/healthz/liveness", observability.LivenessHandler)
	r.Get("/healthz/readiness", observability.ReadinessHandler(s.isReady))
	r.Handle("/metrics", observability.MetricsHandler(s.registry))

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(s.sessions, s.logger))
		r.Use(CSRFMiddleware(s.logger))

		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/reset-password", s.handleResetPassword)
		r.Post("/logout", s.handleLogout)
	})

	return r
}

// formValues flattens the parsed form into the map shape the validator
// takes. CSRFMiddleware has already called ParseForm.
func formValues(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		out[key] = r.PostForm.Get(key)
	}
	return out
}

func (s *Server) setFlash(r *http.Request, sess *session.Context, key, message string) {
	if err := sess.SetFlash(r.Context(), key, message); err != nil {
		errutil.LogWarn(s.logger, "flash set failed", err)
	}
}

// roleLabel clamps the role form value for metric labels so arbitrary
// input never becomes a label value.
func roleLabel(raw string) string {
	if role, err := identity.ParseRole(raw); err == nil {
		return role.String()
	}
	return "unknown"
}

func loginOutcome(message string) string {
	switch message {
	case identity.MsgPendingApproval:
		return observability.OutcomePending
	case identity.MsgSuspended:
		return observability.OutcomeSuspended
	default:
		return observability.OutcomeInvalidCredentials
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	form := formValues(r)

	if res := loginRules.Validate(form); !res.OK() {
		s.metrics.LoginAttemptsTotal.WithLabelValues(roleLabel(form["role"]), observability.OutcomeInvalid).Inc()
		s.setFlash(r, sess, FlashError, strings.Join(res.Messages(), "\n"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	role, err := identity.ParseRole(strings.TrimSpace(form["role"]))
	if err != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues("unknown", observability.OutcomeInvalid).Inc()
		s.setFlash(r, sess, FlashError, identity.MsgInvalidCredentials)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	result, err := s.auth.Login(r.Context(), sess, strings.TrimSpace(form["email"]), form["password"], role)
	if err != nil {
		errutil.LogError(s.logger, "login failed", err)
		s.metrics.LoginAttemptsTotal.WithLabelValues(role.String(), observability.OutcomeError).Inc()
		s.setFlash(r, sess, FlashError, MsgServerError)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if !result.OK {
		s.metrics.LoginAttemptsTotal.WithLabelValues(role.String(), loginOutcome(result.Message)).Inc()
		s.setFlash(r, sess, FlashError, result.Message)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.metrics.LoginAttemptsTotal.WithLabelValues(role.String(), observability.OutcomeSuccess).Inc()

	// Login rotated the session token; the cookie must follow.
	SetSessionCookie(w, sess.Token())
	http.Redirect(w, r, "/"+result.Role.String(), http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	form := formValues(r)

	if res := registerRules.Validate(form); !res.OK() {
		s.metrics.RegistrationsTotal.WithLabelValues(observability.OutcomeInvalid).Inc()
		s.setFlash(r, sess, FlashError, strings.Join(res.Messages(), "\n"))
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	// The integer rule already vouched for semester.
	semester, _ := strconv.Atoi(strings.TrimSpace(form["semester"]))

	result, err := s.auth.Register(r.Context(), identity.Registration{
		Email:    strings.TrimSpace(form["email"]),
		Password: form["password"],
		Profile: identity.StudentProfile{
			FullName:   strings.TrimSpace(form["full_name"]),
			Phone:      strings.TrimSpace(form["phone"]),
			Semester:   semester,
			RollNumber: strings.TrimSpace(form["roll_number"]),
		},
	})
	if err != nil {
		errutil.LogError(s.logger, "registration failed", err)
		s.metrics.RegistrationsTotal.WithLabelValues(observability.OutcomeError).Inc()
		s.setFlash(r, sess, FlashError, MsgServerError)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	if !result.OK {
		s.metrics.RegistrationsTotal.WithLabelValues(observability.OutcomeDuplicateEmail).Inc()
		s.setFlash(r, sess, FlashError, result.Message)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	s.metrics.RegistrationsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	s.setFlash(r, sess, FlashSuccess, result.Message)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	form := formValues(r)

	if res := resetRules.Validate(form); !res.OK() {
		s.setFlash(r, sess, FlashError, strings.Join(res.Messages(), "\n"))
		http.Redirect(w, r, "/reset-password", http.StatusSeeOther)
		return
	}

	role, err := identity.ParseRole(strings.TrimSpace(form["role"]))
	if err != nil {
		s.setFlash(r, sess, FlashError, MsgServerError)
		http.Redirect(w, r, "/reset-password", http.StatusSeeOther)
		return
	}

	result, err := s.auth.ResetPassword(r.Context(), strings.TrimSpace(form["email"]), role)
	if err != nil {
		errutil.LogError(s.logger, "password reset failed", err)
		s.setFlash(r, sess, FlashError, MsgServerError)
		http.Redirect(w, r, "/reset-password", http.StatusSeeOther)
		return
	}

	s.metrics.PasswordResetsTotal.Inc()

	message := result.Message
	if result.TempPassword != "" {
		// Debug builds only; the production service never populates this.
		message += " Temporary password: " + result.TempPassword
	}
	s.setFlash(r, sess, FlashSuccess, message)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	if err := s.auth.Logout(r.Context(), sess); err != nil {
		errutil.LogError(s.logger, "logout failed", err)
		s.setFlash(r, sess, FlashError, MsgServerError)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// Logout rotated to a fresh anonymous session.
	SetSessionCookie(w, sess.Token())
	s.setFlash(r, sess, FlashSuccess, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
