// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package errutil bridges oops errors to structured logging and provides
// test assertion helpers for error codes.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors the message, code, and context map are emitted as
// separate attributes; plain errors are logged as a single string.
func LogError(logger *slog.Logger, msg string, err error) {
	logWith(logger.Error, msg, err)
}

// LogWarn is LogError at warn level, for recoverable failures that should
// be visible without paging anyone.
func LogWarn(logger *slog.Logger, msg string, err error) {
	logWith(logger.Warn, msg, err)
}

func logWith(log func(string, ...any), msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{"error", oopsErr.Error()}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		log(msg, attrs...)
		return
	}
	log(msg, "error", err)
}
