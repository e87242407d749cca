// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("campusgate", "1.0.0", "json", &buf)

	logger.Info("session started", "role", "student")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "session started", record["msg"])
	assert.Equal(t, "campusgate", record["service"])
	assert.Equal(t, "1.0.0", record["version"])
	assert.Equal(t, "student", record["role"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("campusgate", "dev", "text", &buf)

	logger.Warn("csrf verification failed")

	out := buf.String()
	assert.Contains(t, out, "csrf verification failed")
	assert.Contains(t, out, "service=campusgate")
}

func TestSetup_DefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("campusgate", "dev", "", &buf)

	logger.Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
}
