// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container. It aggregates
// all sub-configurations and is populated by merging values from
// environment variables, command-line flags, an optional JSON file and the
// built-in defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env:       direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings: log destination, run mode and the
	// token parameters used by the development server.
	App App `envPrefix:"APP_"`

	// Storage holds the local record store settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the listen settings of the development remote API.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the outbound transport settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds the sync supervisor tunables.
	Sync Sync `envPrefix:"SYNC_"`

	// Connectivity holds the reachability probe and debounce settings.
	Connectivity Connectivity `envPrefix:"CONNECTIVITY_"`

	// Workers holds the periodic job settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds process-level settings.
type App struct {
	// LogPath is the file the client logs to. Empty means a "logs" file next
	// to the executable.
	// Env: APP_LOG_PATH
	LogPath string `env:"LOG_PATH"`

	// LogLevel is the minimum emitted level ("debug", "info", "warn"...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// Background runs a single sync pass and exits instead of starting the
	// long-lived engine.
	// Env: APP_BACKGROUND
	Background bool `env:"BACKGROUND"`

	// TokenSignKey signs the JWTs issued by the development server.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim of issued tokens.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of an access token (e.g. "15m").
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// Version is reported in build info.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the local persistence settings.
type Storage struct {
	// DB holds the SQLite settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds the record store database settings.
type DB struct {
	// DSN is the path of the SQLite file (e.g. "./offline.db").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Server holds the development remote API listen settings.
type Server struct {
	// HTTPAddress is the listen address in "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Password, when set, is the only password /auth/login accepts.
	// Env: SERVER_PASSWORD
	Password string `env:"PASSWORD"`
}

// Adapter holds the outbound transport settings.
type Adapter struct {
	// HTTPAddress is the base URL or "host:port" of the remote API.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every single dispatch.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RateLimit caps outbound requests per second. Zero disables pacing.
	// Env: ADAPTER_RATE_LIMIT
	RateLimit float64 `env:"RATE_LIMIT"`

	// RateBurst is the token bucket size used together with RateLimit.
	// Env: ADAPTER_RATE_BURST
	RateBurst int `env:"RATE_BURST"`
}

// Sync holds the sync supervisor tunables.
type Sync struct {
	// Lanes is the number of entity-type lanes drained concurrently.
	// Env: SYNC_LANES
	Lanes int `env:"LANES"`

	// MaxAttempts is the number of dispatches after which a retryable
	// failure becomes permanent.
	// Env: SYNC_MAX_ATTEMPTS
	MaxAttempts int `env:"MAX_ATTEMPTS"`

	// BaseDelay is the first backoff step.
	// Env: SYNC_BASE_DELAY
	BaseDelay time.Duration `env:"BASE_DELAY"`

	// MaxDelay caps the backoff.
	// Env: SYNC_MAX_DELAY
	MaxDelay time.Duration `env:"MAX_DELAY"`

	// DisableRefresh turns off the cache refresh step after each pass.
	// Env: SYNC_DISABLE_REFRESH
	DisableRefresh bool `env:"DISABLE_REFRESH"`
}

// Connectivity holds the reachability settings.
type Connectivity struct {
	// ProbeInterval is the delay between two health probes.
	// Env: CONNECTIVITY_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// ProbeTimeout bounds a single health probe.
	// Env: CONNECTIVITY_PROBE_TIMEOUT
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT"`

	// Debounce is how long the device must stay online before subscribers
	// hear about it.
	// Env: CONNECTIVITY_DEBOUNCE
	Debounce time.Duration `env:"DEBOUNCE"`
}

// Workers holds the periodic job settings.
type Workers struct {
	// SyncInterval is the period of the wake job.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// PruneAfter is how long Synced operations are kept before the wake job
	// removes them.
	// Env: WORKERS_PRUNE_AFTER
	PruneAfter time.Duration `env:"PRUNE_AFTER"`
}

// GetStructuredConfig loads and merges the configuration from all sources.
// args are the command-line arguments without the program name.
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		withDefaults().
		build()
}
