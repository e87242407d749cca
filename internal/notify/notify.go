// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package notify is the out-of-band delivery seam for credentials. The
// auth service hands generated temporary passwords to a Notifier instead
// of returning them in responses.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a temporary password to the account holder through
// a channel outside the HTTP response, such as email.
type Notifier interface {
	TemporaryPassword(ctx context.Context, email, password string) error
}

// LogNotifier records that a delivery happened without exposing the
// credential. It stands in until a real mail transport is wired up.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// TemporaryPassword logs the delivery event. The password itself is
// never written to the log.
func (n *LogNotifier) TemporaryPassword(ctx context.Context, email, _ string) error {
	n.logger.InfoContext(ctx, "temporary password issued", "email", email)
	return nil
}

// Compile-time interface check.
var _ Notifier = (*LogNotifier)(nil)
