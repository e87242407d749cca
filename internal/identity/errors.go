// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity

import "errors"

// Storage sentinels. Callers wrap them with oops for context.
var (
	// ErrNotFound is returned when no identity matches a lookup.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicateEmail is returned when an insert collides with the
	// unique index on lower(email).
	ErrDuplicateEmail = errors.New("email already in use")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateEmail reports whether err wraps ErrDuplicateEmail.
func IsDuplicateEmail(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}
