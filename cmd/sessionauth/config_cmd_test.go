// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/sessionauth/internal/config"
	"github.com/holomush/sessionauth/pkg/errutil"
)

func TestConfigSchema(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "", "config", "schema")

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("store:\n  driver: memory\nsession:\n  max_age: 1h\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("store:\n  driver: memory\n  cache: true\n"), 0o600))

	h := newHarness(t)

	assert.Equal(t, good+" is valid", h.mustRun(t, "", "config", "validate", good))

	_, err := h.run(t, "", "config", "validate", bad)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")

	_, err = h.run(t, "", "config", "validate")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestConfigFile_AppliesToCommands(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\nsession:\n  policy: multi\n"), 0o600))

	h.mustRun(t, "pw\n", "account", "register", "alice@example.com")
	first := h.mustRun(t, "pw\n", "session", "login", "alice@example.com", "--config", path)
	h.mustRun(t, "pw\n", "session", "login", "alice@example.com", "--config", path)

	// multi from the file keeps the first session alive.
	h.mustRun(t, "", "session", "whoami", first, "--config", path)
}

func TestConfigFile_XDGDefault(t *testing.T) {
	h := newHarness(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sessionauth"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessionauth", "config.yaml"),
		[]byte("session:\n  policy: sideways\n"), 0o600))

	_, err := h.run(t, "", "session", "prune")
	require.Error(t, err, "default config file is loaded")
}
