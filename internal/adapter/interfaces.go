// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer between the sync engine and
// the remote HTTP API.
//
// [Transport] is the raw protocol: it maps a pending operation onto a
// request, attaches the idempotency headers and maps status codes onto the
// error taxonomy in errors.go. [AuthGuard] wraps a Transport with the
// explicit auth [Session]: it refreshes expired credentials exactly once for
// all concurrent callers and replays each blocked call once.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// Transport speaks the remote API. Every call carries the bearer token
// explicitly so that no credential is held in shared mutable state.
type Transport interface {
	// Execute replays op remotely: POST /{entity} for Create, PUT
	// /{entity}/{id} for Update and DELETE /{entity}/{id} for Delete. The
	// request carries the op's Idempotency-Key and X-Queue-ID headers.
	// Errors wrap one of ErrNetwork, ErrServer, ErrUnauthorized,
	// ErrValidation or ErrConflict.
	Execute(ctx context.Context, token string, op models.PendingOperation) (models.RemoteResult, error)

	// FetchAll lists the server-side records of an entity type for the
	// cache refresh step.
	FetchAll(ctx context.Context, token string, entityType models.EntityType) ([]models.Payload, error)

	// Refresh exchanges a refresh token for a new credential pair.
	// A rejected refresh token is reported as ErrAuth.
	Refresh(ctx context.Context, refreshToken string) (models.RefreshResponse, error)

	// Health probes GET /health. A nil error means the API is reachable.
	Health(ctx context.Context) error
}

// RemoteAPI is the authenticated surface used by the sync supervisor. The
// credential is supplied by the implementation.
type RemoteAPI interface {
	Execute(ctx context.Context, op models.PendingOperation) (models.RemoteResult, error)
	FetchAll(ctx context.Context, entityType models.EntityType) ([]models.Payload, error)
}
