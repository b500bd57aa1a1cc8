// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

type clientQueueService struct {
	store  store.Store
	ids    *utils.UUIDGenerator
	now    func() time.Time
	logger *logger.Logger
}

func NewClientQueueService(st store.Store, log *logger.Logger) QueueService {
	return &clientQueueService{
		store:  st,
		ids:    utils.NewUUIDGenerator(),
		now:    time.Now,
		logger: log,
	}
}

func (q *clientQueueService) Enqueue(ctx context.Context, verb models.Verb, entityType models.EntityType, targetID string, payload models.Payload) (int64, error) {
	if !verb.Valid() {
		return 0, fmt.Errorf("%w: unknown verb %q", ErrInvalidMutation, verb)
	}
	if !entityType.Valid() {
		return 0, fmt.Errorf("%w: unknown entity type %q", ErrInvalidMutation, entityType)
	}
	if targetID == "" {
		return 0, fmt.Errorf("%w: empty target id", ErrInvalidMutation)
	}

	var queueID int64
	err := q.store.Update(ctx, func(tx store.Tx) error {
		ops, err := store.ListOperations(ctx, tx)
		if err != nil {
			return err
		}
		now := q.now()

		switch verb {
		case models.Create:
			queueID, err = q.enqueueCreate(ctx, tx, entityType, targetID, payload, now)
		case models.Update:
			queueID, err = q.enqueueUpdate(ctx, tx, ops, entityType, targetID, payload, now)
		case models.Delete:
			queueID, err = q.enqueueDelete(ctx, tx, ops, entityType, targetID, now)
		}
		return err
	})
	if err != nil {
		q.logger.Err(err).Str("func", "clientQueueService.Enqueue").Str("verb", string(verb)).
			Str("entity_type", string(entityType)).Str("target_id", targetID).Msg("enqueue failed")
		return 0, err
	}

	q.logger.Debug().Str("func", "clientQueueService.Enqueue").Int64("queue_id", queueID).Str("verb", string(verb)).
		Str("entity_type", string(entityType)).Str("target_id", targetID).Msg("mutation enqueued")
	return queueID, nil
}

func (q *clientQueueService) enqueueCreate(ctx context.Context, tx store.Tx, et models.EntityType, id string, payload models.Payload, now time.Time) (int64, error) {
	_, err := store.GetRecord(ctx, tx, et, id)
	if err == nil {
		return 0, fmt.Errorf("%w: %s/%s", ErrRecordExists, et, id)
	}
	if !store.IsNotFound(err) {
		return 0, err
	}

	rec := models.LocalRecord{ID: id, EntityType: et, Payload: payload.Clone(), Revision: 1, UpdatedAt: now}
	if err = store.PutRecord(ctx, tx, rec); err != nil {
		return 0, err
	}
	return q.appendOperation(ctx, tx, et, id, models.Create, payload, nil, now)
}

func (q *clientQueueService) enqueueUpdate(ctx context.Context, tx store.Tx, ops []models.PendingOperation, et models.EntityType, id string, patch models.Payload, now time.Time) (int64, error) {
	rec, err := store.GetRecord(ctx, tx, et, id)
	switch {
	case err == nil:
		rec.Payload = rec.Payload.Merge(patch)
		rec.Revision++
	case store.IsNotFound(err) && !models.IsTempID(id):
		// known to the server but never cached here
		rec = models.LocalRecord{ID: id, EntityType: et, Payload: patch.Clone(), Revision: 1}
	case store.IsNotFound(err):
		return 0, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, et, id)
	default:
		return 0, err
	}
	rec.UpdatedAt = now
	if err = store.PutRecord(ctx, tx, rec); err != nil {
		return 0, err
	}

	if last, ok := newestFor(ops, et, id); ok && last.State == models.StateQueued && last.Verb == models.Update && last.AttemptCount == 0 {
		// later fields win, earlier edits to other fields stay in the request
		last.Payload = last.Payload.Merge(patch)
		last.UpdatedAt = now
		if err = store.PutOperation(ctx, tx, last); err != nil {
			return 0, err
		}
		return last.QueueID, nil
	}

	return q.appendOperation(ctx, tx, et, id, models.Update, patch, pendingCreate(ops, et, id), now)
}

func (q *clientQueueService) enqueueDelete(ctx context.Context, tx store.Tx, ops []models.PendingOperation, et models.EntityType, id string, now time.Time) (int64, error) {
	if create, ok := draftCreate(ops, et, id); ok {
		// the server never heard of it: drop the draft instead of sending anything
		if err := cancelTarget(ctx, tx, ops, et, id, now); err != nil {
			return 0, err
		}
		return create.QueueID, store.DeleteRecord(ctx, tx, et, id)
	}

	if err := store.DeleteRecord(ctx, tx, et, id); err != nil {
		return 0, err
	}
	return q.appendOperation(ctx, tx, et, id, models.Delete, nil, pendingCreate(ops, et, id), now)
}

func (q *clientQueueService) appendOperation(ctx context.Context, tx store.Tx, et models.EntityType, id string, verb models.Verb, payload models.Payload, dependsOn *int64, now time.Time) (int64, error) {
	queueID, err := tx.NextSequence(ctx, store.NamespaceSyncQueue)
	if err != nil {
		return 0, err
	}

	op := models.PendingOperation{
		QueueID:          queueID,
		EntityType:       et,
		TargetID:         id,
		Verb:             verb,
		EnqueuedAt:       now,
		UpdatedAt:        now,
		State:            models.StateQueued,
		DependsOnQueueID: dependsOn,
		IdempotencyKey:   q.ids.Generate(),
	}
	if payload != nil {
		op.Payload = payload.Clone()
	}
	return queueID, store.PutOperation(ctx, tx, op)
}

// newestFor returns the operation with the highest queue id on the target.
func newestFor(ops []models.PendingOperation, et models.EntityType, id string) (models.PendingOperation, bool) {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].EntityType == et && ops[i].TargetID == id {
			return ops[i], true
		}
	}
	return models.PendingOperation{}, false
}

// pendingCreate returns the queue id of the unsynced Create of a temporary
// target, or nil.
func pendingCreate(ops []models.PendingOperation, et models.EntityType, id string) *int64 {
	if !models.IsTempID(id) {
		return nil
	}
	for _, op := range ops {
		if op.EntityType == et && op.TargetID == id && op.Verb == models.Create && op.State != models.StateSynced {
			queueID := op.QueueID
			return &queueID
		}
	}
	return nil
}

// draftCreate finds the Create of a temporary target that was never
// dispatched.
func draftCreate(ops []models.PendingOperation, et models.EntityType, id string) (models.PendingOperation, bool) {
	if !models.IsTempID(id) {
		return models.PendingOperation{}, false
	}
	for _, op := range ops {
		if op.EntityType == et && op.TargetID == id && op.Verb == models.Create {
			return op, op.State == models.StateQueued && op.AttemptCount == 0
		}
	}
	return models.PendingOperation{}, false
}

func cancelTarget(ctx context.Context, tx store.Tx, ops []models.PendingOperation, et models.EntityType, id string, now time.Time) error {
	for _, op := range ops {
		if op.EntityType != et || op.TargetID != id || op.State != models.StateQueued {
			continue
		}
		op.State = models.StateCancelled
		op.UpdatedAt = now
		if err := store.PutOperation(ctx, tx, op); err != nil {
			return err
		}
	}
	return nil
}

func (q *clientQueueService) Get(ctx context.Context, queueID int64) (models.PendingOperation, error) {
	op, err := store.GetOperation(ctx, q.store, queueID)
	if store.IsNotFound(err) {
		return models.PendingOperation{}, fmt.Errorf("%w: #%d", ErrOperationNotFound, queueID)
	}
	return op, err
}

func (q *clientQueueService) List(ctx context.Context, states ...models.OperationState) ([]models.PendingOperation, error) {
	ops, err := store.ListOperations(ctx, q.store)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return ops, nil
	}
	return slices.DeleteFunc(ops, func(op models.PendingOperation) bool {
		return !slices.Contains(states, op.State)
	}), nil
}

func (q *clientQueueService) ListQueued(ctx context.Context) ([]models.PendingOperation, error) {
	return q.List(ctx, models.StateQueued)
}

func (q *clientQueueService) Counts(ctx context.Context) (map[models.OperationState]int, error) {
	ops, err := store.ListOperations(ctx, q.store)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.OperationState]int)
	for _, op := range ops {
		counts[op.State]++
	}
	return counts, nil
}

func (q *clientQueueService) Cancel(ctx context.Context, queueID int64) error {
	return q.store.Update(ctx, func(tx store.Tx) error {
		op, err := getOperation(ctx, tx, queueID)
		if err != nil {
			return err
		}
		if !models.CanTransition(op.State, models.StateCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, op.State, models.StateCancelled)
		}

		now := q.now()
		if op.Verb == models.Create && op.AttemptCount == 0 && models.IsTempID(op.TargetID) {
			ops, err := store.ListOperations(ctx, tx)
			if err != nil {
				return err
			}
			if err = cancelTarget(ctx, tx, ops, op.EntityType, op.TargetID, now); err != nil {
				return err
			}
			return store.DeleteRecord(ctx, tx, op.EntityType, op.TargetID)
		}

		op.State = models.StateCancelled
		op.UpdatedAt = now
		return store.PutOperation(ctx, tx, op)
	})
}

func (q *clientQueueService) Dismiss(ctx context.Context, queueID int64) error {
	return q.store.Update(ctx, func(tx store.Tx) error {
		op, err := getOperation(ctx, tx, queueID)
		if err != nil {
			return err
		}
		if !op.State.Terminal() {
			return fmt.Errorf("%w: #%d is %s", ErrNotDismissable, queueID, op.State)
		}
		return store.DeleteOperation(ctx, tx, queueID)
	})
}

func (q *clientQueueService) Retry(ctx context.Context, queueID int64) error {
	return q.store.Update(ctx, func(tx store.Tx) error {
		op, err := getOperation(ctx, tx, queueID)
		if err != nil {
			return err
		}
		if op.State != models.StateDead {
			return fmt.Errorf("%w: #%d %s -> %s", ErrInvalidTransition, queueID, op.State, models.StateQueued)
		}

		op.State = models.StateQueued
		op.AttemptCount = 0
		op.LastError = ""
		op.NotBefore = nil
		op.UpdatedAt = q.now()
		return store.PutOperation(ctx, tx, op)
	})
}

func (q *clientQueueService) ResetInFlight(ctx context.Context) (int, error) {
	var n int
	err := q.store.Update(ctx, func(tx store.Tx) error {
		ops, err := store.ListOperations(ctx, tx)
		if err != nil {
			return err
		}
		now := q.now()
		for _, op := range ops {
			if op.State != models.StateInFlight {
				continue
			}
			op.State = models.StateQueued
			op.UpdatedAt = now
			if err = store.PutOperation(ctx, tx, op); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err == nil && n > 0 {
		q.logger.Info().Str("func", "clientQueueService.ResetInFlight").Int("count", n).Msg("interrupted operations requeued")
	}
	return n, err
}

func (q *clientQueueService) PruneSynced(ctx context.Context, olderThan time.Duration) (int, error) {
	var n int
	err := q.store.Update(ctx, func(tx store.Tx) error {
		ops, err := store.ListOperations(ctx, tx)
		if err != nil {
			return err
		}
		cutoff := q.now().Add(-olderThan)
		for _, op := range ops {
			if op.State != models.StateSynced || !op.UpdatedAt.Before(cutoff) {
				continue
			}
			if err = store.DeleteOperation(ctx, tx, op.QueueID); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (q *clientQueueService) MarkInFlight(ctx context.Context, queueID int64) (models.PendingOperation, error) {
	return q.transition(ctx, queueID, models.StateInFlight, func(op *models.PendingOperation) {
		op.AttemptCount++
		op.NotBefore = nil
	})
}

func (q *clientQueueService) Complete(ctx context.Context, queueID int64, result models.RemoteResult) (models.PendingOperation, error) {
	var done models.PendingOperation
	err := q.store.Update(ctx, func(tx store.Tx) error {
		op, err := q.transitionTx(ctx, tx, queueID, models.StateSynced, func(op *models.PendingOperation) {
			op.LastError = ""
			op.CanonicalID = result.CanonicalID
		})
		if err != nil {
			return err
		}
		done = op

		if op.Verb == models.Create && models.IsTempID(op.TargetID) && result.CanonicalID != "" {
			_, err = q.reconcileTx(ctx, tx, op, result.CanonicalID, result.ServerFields)
		}
		return err
	})
	return done, err
}

func (q *clientQueueService) MarkRetry(ctx context.Context, queueID int64, notBefore time.Time, cause error) error {
	_, err := q.transition(ctx, queueID, models.StateQueued, func(op *models.PendingOperation) {
		op.NotBefore = &notBefore
		op.LastError = describeFailure(cause)
	})
	return err
}

func (q *clientQueueService) Requeue(ctx context.Context, queueID int64, cause error) error {
	_, err := q.transition(ctx, queueID, models.StateQueued, func(op *models.PendingOperation) {
		op.AttemptCount = max(op.AttemptCount-1, 0)
		op.LastError = describeFailure(cause)
	})
	return err
}

func (q *clientQueueService) MarkDead(ctx context.Context, queueID int64, cause error) error {
	_, err := q.transition(ctx, queueID, models.StateDead, func(op *models.PendingOperation) {
		op.NotBefore = nil
		op.LastError = describeFailure(cause)
	})
	if err == nil {
		q.logger.Warn().Str("func", "clientQueueService.MarkDead").Int64("queue_id", queueID).Err(cause).Msg("operation is dead")
	}
	return err
}

func (q *clientQueueService) Reconcile(ctx context.Context, op models.PendingOperation, canonicalID string, serverFields models.Payload) ([]int64, error) {
	var retargeted []int64
	err := q.store.Update(ctx, func(tx store.Tx) error {
		var err error
		retargeted, err = q.reconcileTx(ctx, tx, op, canonicalID, serverFields)
		return err
	})
	return retargeted, err
}

func (q *clientQueueService) reconcileTx(ctx context.Context, tx store.Tx, op models.PendingOperation, canonicalID string, serverFields models.Payload) ([]int64, error) {
	tempID := op.TargetID
	if !models.IsTempID(tempID) || canonicalID == "" || canonicalID == tempID {
		return nil, nil
	}
	now := q.now()

	rec, err := store.GetRecord(ctx, tx, op.EntityType, tempID)
	switch {
	case err == nil:
		fields := serverFields.Clone()
		delete(fields, "id")
		canonical := models.LocalRecord{
			ID:           canonicalID,
			EntityType:   op.EntityType,
			Payload:      rec.Payload.Merge(fields),
			Revision:     rec.Revision + 1,
			OriginTempID: &tempID,
			UpdatedAt:    now,
		}
		if err = store.PutRecord(ctx, tx, canonical); err != nil {
			return nil, err
		}
		if err = store.DeleteRecord(ctx, tx, op.EntityType, tempID); err != nil {
			return nil, err
		}
	case store.IsNotFound(err):
		// deleted locally while the Create was in flight; the queued Delete
		// follows the retarget below
	default:
		return nil, err
	}

	ops, err := store.ListOperations(ctx, tx)
	if err != nil {
		return nil, err
	}
	var retargeted []int64
	for _, other := range ops {
		if other.QueueID == op.QueueID || other.EntityType != op.EntityType || other.TargetID != tempID || other.State.Terminal() {
			continue
		}
		other.TargetID = canonicalID
		other.UpdatedAt = now
		if err = store.PutOperation(ctx, tx, other); err != nil {
			return nil, err
		}
		retargeted = append(retargeted, other.QueueID)
	}

	q.logger.Info().Str("func", "clientQueueService.reconcile").Str("temp_id", tempID).Str("canonical_id", canonicalID).
		Ints64("retargeted", retargeted).Msg("temporary id reconciled")
	return retargeted, nil
}

func (q *clientQueueService) transition(ctx context.Context, queueID int64, to models.OperationState, mutate func(op *models.PendingOperation)) (models.PendingOperation, error) {
	var out models.PendingOperation
	err := q.store.Update(ctx, func(tx store.Tx) error {
		var err error
		out, err = q.transitionTx(ctx, tx, queueID, to, mutate)
		return err
	})
	return out, err
}

func (q *clientQueueService) transitionTx(ctx context.Context, tx store.Tx, queueID int64, to models.OperationState, mutate func(op *models.PendingOperation)) (models.PendingOperation, error) {
	op, err := getOperation(ctx, tx, queueID)
	if err != nil {
		return models.PendingOperation{}, err
	}
	if !models.CanTransition(op.State, to) {
		return models.PendingOperation{}, fmt.Errorf("%w: #%d %s -> %s", ErrInvalidTransition, queueID, op.State, to)
	}

	op.State = to
	op.UpdatedAt = q.now()
	if mutate != nil {
		mutate(&op)
	}
	return op, store.PutOperation(ctx, tx, op)
}

func getOperation(ctx context.Context, tx store.Tx, queueID int64) (models.PendingOperation, error) {
	op, err := store.GetOperation(ctx, tx, queueID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PendingOperation{}, fmt.Errorf("%w: #%d", ErrOperationNotFound, queueID)
	}
	return op, err
}
