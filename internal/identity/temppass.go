// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package identity

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// TempPasswordLength is the length of generated temporary passwords.
const TempPasswordLength = 12

// tempPasswordAlphabet omits visually ambiguous characters (0/O, 1/l/I)
// since temporary passwords are read and retyped by people.
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTempPassword creates a random temporary password for the
// password-reset flow. Each character is drawn uniformly from the
// alphabet using crypto/rand.
func GenerateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	out := make([]byte, TempPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", oops.Code("AUTH_TEMP_PASSWORD_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(err)
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
