// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package errutil

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestLogError_OopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("AUTH_INVALID_CREDENTIALS").
		With("email", "x@example.com").
		Errorf("invalid credentials")
	LogError(logger, "login failed", err)

	out := buf.String()
	assert.Contains(t, out, "login failed")
	assert.Contains(t, out, "AUTH_INVALID_CREDENTIALS")
	assert.Contains(t, out, "x@example.com")
}

func TestLogError_PlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogError(logger, "query failed", errors.New("connection refused"))

	out := buf.String()
	assert.Contains(t, out, "query failed")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, `"code"`)
}

func TestLogWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogWarn(logger, "flash dropped", oops.Code("SESSION_SAVE_FAILED").Errorf("save failed"))

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "SESSION_SAVE_FAILED")
}
