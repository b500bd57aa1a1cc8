// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Success(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"storage":      map[string]any{"db": map[string]any{"dsn": "json.db"}},
		"adapter":      map[string]any{"http_address": "http://x", "request_timeout": "7s", "rate_limit": 10, "rate_burst": 3},
		"sync":         map[string]any{"max_attempts": 3, "max_delay": "30s", "disable_refresh": true},
		"connectivity": map[string]any{"probe_interval": "20s", "probe_timeout": "1s"},
		"workers":      map[string]any{"prune_after": "2h"},
	})

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "json.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 7*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 3, cfg.Adapter.RateBurst)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Sync.MaxDelay)
	assert.True(t, cfg.Sync.DisableRefresh)
	assert.Equal(t, 20*time.Second, cfg.Connectivity.ProbeInterval)
	assert.Equal(t, 2*time.Hour, cfg.Workers.PruneAfter)
	assert.Empty(t, cfg.JSONFilePath)
}

func TestParseJSON_FileNotFound(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a json file")
}

func TestParseJSON_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sync":{"base_delay":"later"}}`), 0o600))

	_, err := parseJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding json configs")
}

func TestDuration_NumericNanoseconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1500000000`)))
	assert.Equal(t, 1500*time.Millisecond, time.Duration(d))

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}
