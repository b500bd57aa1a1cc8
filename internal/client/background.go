// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// RunBackgroundSync is the wake entry used by the OS scheduler. It runs in
// a process of its own: it opens the store, restores the session, runs one
// pass and closes everything again.
func RunBackgroundSync(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (models.SyncReport, error) {
	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return models.SyncReport{}, err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Err(err).Str("func", "RunBackgroundSync").Msg("error closing store")
		}
	}()

	report, err := app.SyncOnce(ctx)
	if err != nil {
		return report, fmt.Errorf("background sync: %w", err)
	}

	log.Info().
		Int("claimed", report.Claimed).
		Int("synced", report.Synced).
		Int("retried", report.Retried).
		Int("dead", report.Dead).
		Int("deferred", report.Deferred).
		Msg("background sync finished")
	return report, nil
}
