// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/campusgate/campusgate/internal/config"
	"github.com/campusgate/campusgate/internal/identity"
	identitypg "github.com/campusgate/campusgate/internal/identity/postgres"
	"github.com/campusgate/campusgate/internal/logging"
	"github.com/campusgate/campusgate/internal/notify"
	"github.com/campusgate/campusgate/internal/observability"
	"github.com/campusgate/campusgate/internal/session"
	sessionpg "github.com/campusgate/campusgate/internal/session/postgres"
	"github.com/campusgate/campusgate/internal/store"
	"github.com/campusgate/campusgate/internal/web"
	"github.com/campusgate/campusgate/pkg/errutil"
)

const serviceName = "campusgate"

// sweepInterval is how often idle-expired sessions are reaped in the
// background. Lazy expiry in the session manager keeps correctness
// without it; the sweep only keeps the table small.
const sweepInterval = 15 * time.Minute

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server handling login, registration, password reset,
logout, and the observability endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("database-url", "", "PostgreSQL connection string (or DATABASE_URL)")
	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "HTTP listen address")
	cmd.Flags().Duration("session-idle-timeout", config.DefaultSessionIdleTimeout, "session inactivity window")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().Bool("debug", false, "debug mode: password resets return the plaintext temporary password")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault(serviceName, version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting server",
		"http_addr", cfg.HTTPAddr,
		"session_idle_timeout", cfg.SessionIdleTimeout.String(),
		"log_format", cfg.LogFormat,
		"debug", cfg.Debug,
	)

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	directory, err := identitypg.NewDirectory(pool)
	if err != nil {
		return err
	}

	sessions := session.NewManager(sessionpg.NewSessionStore(pool),
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
		session.WithLogger(logger),
	)

	hasher := identity.NewArgon2idHasher()
	notifier := notify.NewLogNotifier(logger)

	var auth *identity.Service
	if cfg.Debug {
		logger.Warn("debug mode enabled: temporary passwords will be echoed to the page")
		auth = identity.NewDebugService(directory, hasher, notifier, logger)
	} else {
		auth = identity.NewService(directory, hasher, notifier, logger)
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ready := func() bool { return pool.Ping(ctx) == nil }
	server := web.NewServer(sessions, auth, metrics, registry, ready, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go sweepSessions(ctx, sessions, logger)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started on " + cfg.HTTPAddr)
	logger.Info("server ready", "http_addr", cfg.HTTPAddr)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr := <-errChan:
		return oops.Code("HTTP_SERVER_FAILED").With("addr", cfg.HTTPAddr).Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}

	logger.Info("shutdown complete")
	return nil
}

// sweepSessions periodically deletes idle-expired session rows.
func sweepSessions(ctx context.Context, sessions *session.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.Sweep(ctx)
			if err != nil {
				errutil.LogWarn(logger, "session sweep failed", err)
				continue
			}
			if deleted > 0 {
				logger.Debug("swept idle sessions", "deleted", deleted)
			}
		}
	}
}
