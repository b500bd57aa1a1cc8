// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

// The interfaces below are served by the development remote API. The sync
// engine itself only talks to them over HTTP.

// AuthService issues and rotates credential pairs.
type AuthService interface {
	// Login accepts any non-empty login whose password matches the
	// configured one and returns a fresh credential pair.
	Login(ctx context.Context, req models.LoginRequest) (models.Credentials, error)

	// Refresh rotates a refresh token. Each refresh token is valid once.
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)

	// ParseToken validates an access token and returns its subject.
	ParseToken(ctx context.Context, token string) (string, error)
}

// RemoteRecordsService stores the server copy of listings and transactions.
type RemoteRecordsService interface {
	// Apply executes m at most once per idempotency key. A replay returns
	// the stored result; a reused key with a different body fails with
	// ErrIdempotencyKeyReused.
	Apply(ctx context.Context, m models.RemoteMutation) (models.MutationResult, error)

	// List returns every record of entityType with its "id" field set.
	List(ctx context.Context, entityType models.EntityType) ([]models.Payload, error)
}

// RemoteRecordsServiceWrapper decorates a RemoteRecordsService, for
// instance with validation.
type RemoteRecordsServiceWrapper interface {
	Wrap(RemoteRecordsService) RemoteRecordsService
}

// AppInfoService reports build information.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
