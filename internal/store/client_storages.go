// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// ClientStorages groups the storage handles used by the engine.
type ClientStorages struct {
	// Store is the record store handed to the services. It is the fallback
	// wrapper around Durable.
	Store *FallbackStore

	// Durable is the SQLite store underneath.
	Durable *SQLiteStore
}

// NewClientStorages opens (creating if needed) the SQLite file named by
// cfg.DB.DSN, applies pending migrations and wraps the result in a
// [FallbackStore].
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Str("dsn", cfg.DB.DSN).Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	durable := NewSQLiteStore(db, log)
	return &ClientStorages{
		Store:   NewFallbackStore(durable, log),
		Durable: durable,
	}, nil
}

// Close flushes what it can and closes the database.
func (c *ClientStorages) Close() error {
	return c.Store.Close()
}
