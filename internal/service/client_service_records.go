// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

type clientRecordsService struct {
	store  store.Store
	queue  QueueService
	sync   SyncService
	ids    *utils.UUIDGenerator
	logger *logger.Logger
}

func NewClientRecordsService(st store.Store, queue QueueService, syncService SyncService, log *logger.Logger) RecordsService {
	return &clientRecordsService{
		store:  st,
		queue:  queue,
		sync:   syncService,
		ids:    utils.NewUUIDGenerator(),
		logger: log,
	}
}

func (r *clientRecordsService) EnqueueMutation(ctx context.Context, verb models.Verb, entityType models.EntityType, id string, payload models.Payload) (int64, error) {
	// a temporary id reconciled during the last pass still reaches its record
	id = r.sync.Resolve(entityType, id)

	queueID, err := r.queue.Enqueue(ctx, verb, entityType, id, payload)
	if err != nil {
		return 0, err
	}
	r.sync.Trigger("mutation enqueued")
	return queueID, nil
}

func (r *clientRecordsService) CreateRecord(ctx context.Context, entityType models.EntityType, payload models.Payload) (models.LocalRecord, int64, error) {
	id := r.ids.TempID()
	queueID, err := r.EnqueueMutation(ctx, models.Create, entityType, id, payload)
	if err != nil {
		return models.LocalRecord{}, 0, err
	}

	rec, err := r.GetCachedRecord(ctx, entityType, id)
	if err != nil {
		return models.LocalRecord{}, 0, err
	}
	return rec, queueID, nil
}

func (r *clientRecordsService) GetCachedRecord(ctx context.Context, entityType models.EntityType, id string) (models.LocalRecord, error) {
	rec, err := store.GetRecord(ctx, r.store, entityType, r.sync.Resolve(entityType, id))
	if store.IsNotFound(err) {
		return models.LocalRecord{}, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entityType, id)
	}
	return rec, err
}

func (r *clientRecordsService) ListCachedRecords(ctx context.Context, entityType models.EntityType) ([]models.LocalRecord, error) {
	return store.ListRecords(ctx, r.store, entityType)
}

func (r *clientRecordsService) ListOperations(ctx context.Context, states ...models.OperationState) ([]models.PendingOperation, error) {
	return r.queue.List(ctx, states...)
}

func (r *clientRecordsService) DismissOperation(ctx context.Context, queueID int64) error {
	if err := r.queue.Dismiss(ctx, queueID); err != nil {
		return err
	}
	r.sync.Trigger("operation dismissed")
	return nil
}

func (r *clientRecordsService) CancelOperation(ctx context.Context, queueID int64) error {
	if err := r.queue.Cancel(ctx, queueID); err != nil {
		return err
	}
	r.logger.Info().Str("func", "clientRecordsService.CancelOperation").Int64("queue_id", queueID).Msg("operation cancelled")
	r.sync.Trigger("operation cancelled")
	return nil
}

func (r *clientRecordsService) RetryOperation(ctx context.Context, queueID int64) error {
	if err := r.queue.Retry(ctx, queueID); err != nil {
		return err
	}
	r.logger.Info().Str("func", "clientRecordsService.RetryOperation").Int64("queue_id", queueID).Msg("operation revived")
	r.sync.Trigger("operation retried")
	return nil
}

func (r *clientRecordsService) SyncNow() {
	r.sync.Trigger("requested by user")
}

func (r *clientRecordsService) SyncStatus() models.SyncStatus {
	return r.sync.Status()
}

func (r *clientRecordsService) SubscribeToSyncStatus(fn func(models.SyncStatus)) func() {
	return r.sync.SubscribeToStatus(fn)
}
