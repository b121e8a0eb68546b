// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/sessionauth/internal/config"
	"github.com/holomush/sessionauth/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"store", "session", "log", "metrics"} {
		assert.Contains(t, props, key)
	}
}

func TestValidateYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "empty document", yaml: ""},
		{name: "full document", yaml: `
store:
  driver: postgres
  database_url: postgres://localhost/auth
session:
  max_age: 1h30m
  policy: single
log:
  format: json
  level: warn
metrics:
  addr: ":9100"
`},
		{name: "zero max age", yaml: "session:\n  max_age: 0\n"},
		{name: "nonzero integer max age", yaml: "session:\n  max_age: 3600\n", wantErr: "CONFIG_SCHEMA_VIOLATION"},
		{name: "unknown top-level key", yaml: "server:\n  port: 80\n", wantErr: "CONFIG_SCHEMA_VIOLATION"},
		{name: "driver outside enum", yaml: "store:\n  driver: redis\n", wantErr: "CONFIG_SCHEMA_VIOLATION"},
		{name: "policy outside enum", yaml: "session:\n  policy: all\n", wantErr: "CONFIG_SCHEMA_VIOLATION"},
		{name: "not yaml", yaml: "store: [unclosed", wantErr: "CONFIG_YAML_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateYAML([]byte(tt.yaml))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantErr)
		})
	}
}
