// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package observability provides Prometheus metrics and health check
// handlers. The handlers are mounted on the main web server rather than
// a separate listener.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker returns whether the service is ready to accept requests.
type ReadinessChecker func() bool

// Login outcome labels for Metrics.LoginAttemptsTotal.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomePending            = "pending"
	OutcomeSuspended          = "suspended"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

// csrfFailures is a package-level counter for rejected form submissions.
// This allows middleware to increment the metric without needing access
// to a Metrics instance.
var csrfFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campusgate_csrf_failures_total",
		Help: "Total number of form submissions rejected by CSRF verification, by path",
	},
	[]string{"path"},
)

// RecordCSRFFailure increments the CSRF rejection counter.
func RecordCSRFFailure(path string) {
	csrfFailures.WithLabelValues(path).Inc()
}

// Metrics contains custom Prometheus metrics for CampusGate.
type Metrics struct {
	LoginAttemptsTotal  *prometheus.CounterVec
	RegistrationsTotal  *prometheus.CounterVec
	PasswordResetsTotal prometheus.Counter
}

// NewMetrics creates and registers custom CampusGate metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusgate_login_attempts_total",
				Help: "Total number of login attempts by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusgate_registrations_total",
				Help: "Total number of student registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		PasswordResetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campusgate_password_resets_total",
				Help: "Total number of password reset requests",
			},
		),
	}

	reg.MustRegister(m.LoginAttemptsTotal)
	reg.MustRegister(m.RegistrationsTotal)
	reg.MustRegister(m.PasswordResetsTotal)
	reg.MustRegister(csrfFailures)

	return m
}

// NewRegistry creates a dedicated Prometheus registry with the standard
// Go and process collectors, avoiding the global default registry.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// MetricsHandler returns the Prometheus scrape handler for the registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// LivenessHandler returns 200 if the process is running.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// ReadinessHandler returns a handler reporting 200 when the checker says
// the service is ready, or 503 otherwise. A nil checker means always ready.
func ReadinessHandler(isReady ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if isReady == nil || isReady() {
			w.WriteHeader(http.StatusOK)
			//nolint:errcheck // health check write error is acceptable, client may disconnect
			w.Write([]byte("ok\n"))
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("not ready\n"))
	}
}
