// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// Default values for every tunable. They are merged last, so any source
// that sets a field overrides them.
const (
	DefaultDSN            = "offline.db"
	DefaultAdapterAddress = "http://localhost:8080"
	DefaultServerAddress  = "localhost:8080"
	DefaultRequestTimeout = 15 * time.Second
	DefaultLanes          = 3
	DefaultMaxAttempts    = 5
	DefaultBaseDelay      = time.Second
	DefaultMaxDelay       = 5 * time.Minute
	DefaultProbeInterval  = 10 * time.Second
	DefaultProbeTimeout   = 3 * time.Second
	DefaultDebounce       = 1500 * time.Millisecond
	DefaultSyncInterval   = 5 * time.Minute
	DefaultPruneAfter     = 24 * time.Hour
	DefaultTokenIssuer    = "go-offline-sync"
	DefaultTokenDuration  = 15 * time.Minute
	DefaultRateBurst      = 1
	DefaultLogLevel       = "debug"
)

func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			LogLevel:      DefaultLogLevel,
			TokenIssuer:   DefaultTokenIssuer,
			TokenDuration: DefaultTokenDuration,
		},
		Storage: Storage{DB: DB{DSN: DefaultDSN}},
		Server: Server{
			HTTPAddress:    DefaultServerAddress,
			RequestTimeout: DefaultRequestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    DefaultAdapterAddress,
			RequestTimeout: DefaultRequestTimeout,
			RateBurst:      DefaultRateBurst,
		},
		Sync: Sync{
			Lanes:       DefaultLanes,
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
		},
		Connectivity: Connectivity{
			ProbeInterval: DefaultProbeInterval,
			ProbeTimeout:  DefaultProbeTimeout,
			Debounce:      DefaultDebounce,
		},
		Workers: Workers{
			SyncInterval: DefaultSyncInterval,
			PruneAfter:   DefaultPruneAfter,
		},
	}
}
