// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// validate checks invariants that hold for every binary. Per-binary rules
// live on the projected configs.
func (cfg *StructuredConfig) validate() error {
	if cfg.Adapter.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidAdapterConfigs)
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.Lanes < 1 || cfg.Sync.MaxAttempts < 1 {
		return ErrInvalidSyncConfigs
	}
	if cfg.Sync.BaseDelay <= 0 || cfg.Sync.MaxDelay < cfg.Sync.BaseDelay {
		return fmt.Errorf("%w: backoff delays", ErrInvalidSyncConfigs)
	}

	if cfg.Connectivity.ProbeInterval <= 0 || cfg.Connectivity.Debounce < 0 {
		return ErrInvalidConnectivityConfigs
	}

	if cfg.Workers.SyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

func (cfg *DevServerConfig) validate() error {
	if cfg.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}
	if cfg.TokenSignKey == "" {
		return fmt.Errorf("%w: token sign key is required", ErrInvalidServerConfigs)
	}
	if cfg.TokenDuration <= 0 {
		return fmt.Errorf("%w: token duration", ErrInvalidServerConfigs)
	}
	return nil
}
