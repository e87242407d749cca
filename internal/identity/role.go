// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package identity provides the authentication service and identity
// domain types: roles, account statuses, users, and role profiles.
package identity

import "github.com/samber/oops"

// Role is one of the three disjoint account roles. The role determines
// which profile table an identity joins to and which pages are authorized.
type Role string

// The closed set of roles.
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole converts a raw string to a Role, failing closed on anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return Role(s), nil
	default:
		return "", oops.Code("IDENTITY_INVALID_ROLE").
			With("role", s).
			Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
