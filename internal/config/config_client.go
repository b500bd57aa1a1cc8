// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// ClientApp holds process-level client settings.
type ClientApp struct {
	// LogPath is the client log file. Empty means next to the executable.
	LogPath string
	// LogLevel is the minimum emitted log level.
	LogLevel string
	// Background selects the one-shot background pass instead of the
	// long-lived engine.
	Background bool
	// Version is the build version string.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the remote API base address.
	HTTPAddress string
	// RequestTimeout bounds a single outbound request.
	RequestTimeout time.Duration
	// RateLimit caps requests per second; zero disables pacing.
	RateLimit float64
	// RateBurst is the token bucket size for RateLimit.
	RateBurst int
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file path.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientSync holds the sync supervisor tunables.
type ClientSync struct {
	Lanes            int
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	RefreshAfterSync bool
}

// ClientConnectivity holds the reachability settings.
type ClientConnectivity struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	Debounce      time.Duration
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the wake job triggers a pass.
	SyncInterval time.Duration
	// PruneAfter is the retention of Synced queue rows.
	PruneAfter time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App          ClientApp
	Adapter      ClientAdapter
	Storage      ClientStorage
	Sync         ClientSync
	Connectivity ClientConnectivity
	Workers      ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration. args are the command-line arguments
// without the program name.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig projects the structured config onto the client view.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			LogPath:    cfg.App.LogPath,
			LogLevel:   cfg.App.LogLevel,
			Background: cfg.App.Background,
			Version:    cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			RateLimit:      cfg.Adapter.RateLimit,
			RateBurst:      cfg.Adapter.RateBurst,
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: cfg.Storage.DB.DSN},
		},
		Sync: ClientSync{
			Lanes:            cfg.Sync.Lanes,
			MaxAttempts:      cfg.Sync.MaxAttempts,
			BaseDelay:        cfg.Sync.BaseDelay,
			MaxDelay:         cfg.Sync.MaxDelay,
			RefreshAfterSync: !cfg.Sync.DisableRefresh,
		},
		Connectivity: ClientConnectivity{
			ProbeInterval: cfg.Connectivity.ProbeInterval,
			ProbeTimeout:  cfg.Connectivity.ProbeTimeout,
			Debounce:      cfg.Connectivity.Debounce,
		},
		Workers: ClientWorkers{
			SyncInterval: cfg.Workers.SyncInterval,
			PruneAfter:   cfg.Workers.PruneAfter,
		},
	}
}
