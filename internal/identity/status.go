// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity

import "github.com/samber/oops"

// Status is the account lifecycle state gating whether login may succeed.
// Only active accounts authenticate.
type Status string

// Account lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// ParseStatus converts a raw string to a Status, failing closed on
// anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusSuspended:
		return Status(s), nil
	default:
		return "", oops.Code("IDENTITY_INVALID_STATUS").
			With("status", s).
			Errorf("unknown status %q", s)
	}
}

// Valid reports whether the status is one of the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// CanAuthenticate reports whether login may succeed in this state.
func (s Status) CanAuthenticate() bool {
	return s == StatusActive
}

// CanTransition reports whether an admin may move an account from s to
// next. Allowed: pending → active, and active ↔ suspended. There is no
// path back to pending.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusActive
	case StatusActive:
		return next == StatusSuspended
	case StatusSuspended:
		return next == StatusActive
	}
	return false
}
