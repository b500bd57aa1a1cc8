// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

const idempotencyKeyPrefix = "idempotency/"

// idPrefixes are prepended to server-assigned sequence numbers.
var idPrefixes = map[models.EntityType]string{
	models.Listings:     "L-",
	models.Transactions: "T-",
}

// idempotencyEntry is what the server remembers about an applied request.
type idempotencyEntry struct {
	Fingerprint string                `json:"fingerprint"`
	Result      models.MutationResult `json:"result"`
	AppliedAt   time.Time             `json:"applied_at"`
}

// remoteRecordsService keeps the server copy of every record in a KV
// store: records under their entity namespace, applied idempotency keys
// under userData.
type remoteRecordsService struct {
	store  store.Store
	now    func() time.Time
	logger *logger.Logger
}

func NewRemoteRecordsService(st store.Store, logger *logger.Logger) RemoteRecordsService {
	return &remoteRecordsService{
		store:  st,
		now:    time.Now,
		logger: logger,
	}
}

func (s *remoteRecordsService) Apply(ctx context.Context, m models.RemoteMutation) (models.MutationResult, error) {
	log := logger.FromContext(ctx)

	var result models.MutationResult
	err := s.store.Update(ctx, func(tx store.Tx) error {
		key := idempotencyKeyPrefix + m.IdempotencyKey
		if m.IdempotencyKey != "" {
			var prev idempotencyEntry
			err := store.GetUserData(ctx, tx, key, &prev)
			switch {
			case err == nil:
				if prev.Fingerprint != m.Fingerprint {
					return fmt.Errorf("%w: %s", ErrIdempotencyKeyReused, m.IdempotencyKey)
				}
				result = prev.Result
				result.Replayed = true
				return nil
			case !store.IsNotFound(err):
				return err
			}
		}

		var err error
		switch m.Verb {
		case models.Create:
			result, err = s.create(ctx, tx, m)
		case models.Update:
			result, err = s.update(ctx, tx, m)
		case models.Delete:
			result, err = s.delete(ctx, tx, m)
		default:
			err = fmt.Errorf("%w: unknown verb %q", ErrInvalidDataProvided, m.Verb)
		}
		if err != nil || m.IdempotencyKey == "" {
			return err
		}
		return store.PutUserData(ctx, tx, key, idempotencyEntry{Fingerprint: m.Fingerprint, Result: result, AppliedAt: s.now()})
	})
	if err != nil {
		log.Err(err).Str("func", "remoteRecordsService.Apply").Str("verb", string(m.Verb)).
			Str("entity_type", string(m.EntityType)).Str("id", m.ID).Msg("mutation rejected")
		return models.MutationResult{}, err
	}

	log.Debug().Str("func", "remoteRecordsService.Apply").Str("verb", string(m.Verb)).
		Str("entity_type", string(m.EntityType)).Str("id", m.ID).Bool("replayed", result.Replayed).Msg("mutation applied")
	return result, nil
}

func (s *remoteRecordsService) create(ctx context.Context, tx store.Tx, m models.RemoteMutation) (models.MutationResult, error) {
	ns, err := store.RecordNamespace(m.EntityType)
	if err != nil {
		return models.MutationResult{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}
	seq, err := tx.NextSequence(ctx, ns)
	if err != nil {
		return models.MutationResult{}, err
	}

	rec := models.LocalRecord{
		ID:         idPrefixes[m.EntityType] + strconv.FormatInt(seq, 10),
		EntityType: m.EntityType,
		Payload:    withoutID(m.Payload),
		Revision:   1,
		UpdatedAt:  s.now(),
	}
	if err = store.PutRecord(ctx, tx, rec); err != nil {
		return models.MutationResult{}, err
	}
	return models.MutationResult{StatusCode: http.StatusCreated, Fields: withID(rec)}, nil
}

func (s *remoteRecordsService) update(ctx context.Context, tx store.Tx, m models.RemoteMutation) (models.MutationResult, error) {
	rec, err := store.GetRecord(ctx, tx, m.EntityType, m.ID)
	if store.IsNotFound(err) {
		return models.MutationResult{}, fmt.Errorf("%w: %s/%s", ErrRemoteRecordNotFound, m.EntityType, m.ID)
	}
	if err != nil {
		return models.MutationResult{}, err
	}

	rec.Payload = rec.Payload.Merge(withoutID(m.Payload))
	rec.Revision++
	rec.UpdatedAt = s.now()
	if err = store.PutRecord(ctx, tx, rec); err != nil {
		return models.MutationResult{}, err
	}
	return models.MutationResult{StatusCode: http.StatusOK, Fields: withID(rec)}, nil
}

func (s *remoteRecordsService) delete(ctx context.Context, tx store.Tx, m models.RemoteMutation) (models.MutationResult, error) {
	_, err := store.GetRecord(ctx, tx, m.EntityType, m.ID)
	if store.IsNotFound(err) {
		return models.MutationResult{}, fmt.Errorf("%w: %s/%s", ErrRemoteRecordNotFound, m.EntityType, m.ID)
	}
	if err != nil {
		return models.MutationResult{}, err
	}
	if err = store.DeleteRecord(ctx, tx, m.EntityType, m.ID); err != nil {
		return models.MutationResult{}, err
	}
	return models.MutationResult{StatusCode: http.StatusNoContent}, nil
}

func (s *remoteRecordsService) List(ctx context.Context, entityType models.EntityType) ([]models.Payload, error) {
	records, err := store.ListRecords(ctx, s.store, entityType)
	if err != nil {
		return nil, err
	}

	out := make([]models.Payload, 0, len(records))
	for _, rec := range records {
		out = append(out, withID(rec))
	}
	return out, nil
}

func withoutID(p models.Payload) models.Payload {
	out := p.Clone()
	delete(out, "id")
	return out
}

func withID(rec models.LocalRecord) models.Payload {
	out := rec.Payload.Clone()
	out["id"] = rec.ID
	return out
}
