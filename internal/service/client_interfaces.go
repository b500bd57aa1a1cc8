// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-offline-sync/models"
)

// QueueService is the mutation queue manager. It is the only writer of
// sync queue rows: every state change of a [models.PendingOperation] goes
// through one of its methods, each of which runs in a single store
// transaction.
type QueueService interface {
	// Enqueue records a mutation and applies it optimistically to the cached
	// record in the same transaction. It returns the queue id of the
	// operation that now carries the mutation: a new row, the row an Update
	// was coalesced into, or the cancelled Create of a deleted draft.
	Enqueue(ctx context.Context, verb models.Verb, entityType models.EntityType, targetID string, payload models.Payload) (int64, error)

	// Get returns one operation or ErrOperationNotFound.
	Get(ctx context.Context, queueID int64) (models.PendingOperation, error)

	// List returns the operations in any of states, in queue order. No
	// states means all of them.
	List(ctx context.Context, states ...models.OperationState) ([]models.PendingOperation, error)

	// ListQueued is List(ctx, models.StateQueued).
	ListQueued(ctx context.Context) ([]models.PendingOperation, error)

	// Counts returns the number of operations per state.
	Counts(ctx context.Context) (map[models.OperationState]int, error)

	// Cancel withdraws a Queued operation. Cancelling the Create of a draft
	// that never left the device cancels every queued operation on it and
	// removes the cached record.
	Cancel(ctx context.Context, queueID int64) error

	// Dismiss removes a Synced, Dead or Cancelled operation.
	Dismiss(ctx context.Context, queueID int64) error

	// Retry puts a Dead operation back in the queue with a fresh attempt
	// budget. It keeps its QueueID and therefore its place in line.
	Retry(ctx context.Context, queueID int64) error

	// ResetInFlight returns every InFlight operation to Queued. It runs once
	// at startup, before any pass.
	ResetInFlight(ctx context.Context) (int, error)

	// PruneSynced removes Synced operations last updated before olderThan ago.
	PruneSynced(ctx context.Context, olderThan time.Duration) (int, error)

	// MarkInFlight claims a Queued operation and counts the attempt.
	MarkInFlight(ctx context.Context, queueID int64) (models.PendingOperation, error)

	// Complete marks an InFlight operation Synced. A Create on a temporary id
	// whose result carries a canonical id is reconciled in the same
	// transaction (see Reconcile).
	Complete(ctx context.Context, queueID int64, result models.RemoteResult) (models.PendingOperation, error)

	// MarkRetry returns an InFlight operation to Queued until notBefore.
	MarkRetry(ctx context.Context, queueID int64, notBefore time.Time, cause error) error

	// Requeue returns an InFlight operation to Queued without counting the
	// attempt.
	Requeue(ctx context.Context, queueID int64, cause error) error

	// MarkDead gives up on a Queued or InFlight operation.
	MarkDead(ctx context.Context, queueID int64, cause error) error

	// Reconcile replaces the temporary record of op with one keyed by
	// canonicalID, retargets every other queued operation of the temporary
	// id and returns their queue ids.
	Reconcile(ctx context.Context, op models.PendingOperation, canonicalID string, serverFields models.Payload) ([]int64, error)
}

// SyncService is the sync supervisor.
type SyncService interface {
	// Start subscribes to connectivity and session changes and triggers the
	// first pass. Stop undoes it and waits for a running pass.
	Start(ctx context.Context)
	Stop()

	// Trigger asks for a pass without waiting. A trigger during a running
	// pass makes the supervisor run again right after it.
	Trigger(reason string)

	// RunPass runs passes on the calling goroutine until no rerun is
	// pending. It returns ErrSyncInProgress if another pass is active,
	// ErrOffline or ErrPaused if the entry condition does not hold.
	RunPass(ctx context.Context) (models.SyncReport, error)

	// Resolve follows a temporary id that was reconciled recently to its
	// canonical id. Unknown ids are returned unchanged.
	Resolve(entityType models.EntityType, id string) string

	Status() models.SyncStatus
	SubscribeToStatus(fn func(models.SyncStatus)) (unsubscribe func())
}

// RecordsService is the surface the UI talks to. The UI never calls the
// remote API for records directly.
type RecordsService interface {
	EnqueueMutation(ctx context.Context, verb models.Verb, entityType models.EntityType, id string, payload models.Payload) (int64, error)

	// CreateRecord mints a temporary id and enqueues its Create.
	CreateRecord(ctx context.Context, entityType models.EntityType, payload models.Payload) (models.LocalRecord, int64, error)

	// GetCachedRecord returns the cached record, following a recent
	// temporary to canonical redirect.
	GetCachedRecord(ctx context.Context, entityType models.EntityType, id string) (models.LocalRecord, error)
	ListCachedRecords(ctx context.Context, entityType models.EntityType) ([]models.LocalRecord, error)

	ListOperations(ctx context.Context, states ...models.OperationState) ([]models.PendingOperation, error)
	DismissOperation(ctx context.Context, queueID int64) error
	CancelOperation(ctx context.Context, queueID int64) error
	RetryOperation(ctx context.Context, queueID int64) error

	SyncNow()
	SyncStatus() models.SyncStatus
	SubscribeToSyncStatus(fn func(models.SyncStatus)) (unsubscribe func())
}

// SyncJob periodically wakes the supervisor and prunes old Synced rows.
type SyncJob interface {
	// Start launches the job goroutine, stopping a previous one first.
	Start(ctx context.Context)

	// Stop cancels the job and blocks until it has exited.
	Stop()
}
