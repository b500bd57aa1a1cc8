// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

// refreshCaches replaces the cached records of every entity type with the
// server's list. Records with Queued or InFlight operations keep their local
// version, and so do temporary records. Unchanged records are not
// rewritten, so running the step twice is the same as running it once.
func (s *clientSyncService) refreshCaches(ctx context.Context) {
	for _, et := range models.EntityTypes() {
		fctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		items, err := s.remote.FetchAll(fctx, et)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("func", "clientSyncService.refreshCaches").Str("entity_type", string(et)).
				Msg("cache refresh skipped")
			if adapter.Classify(err) == adapter.AuthExpired {
				return
			}
			continue
		}

		var written, removed int
		err = s.store.Update(ctx, func(tx store.Tx) error {
			written, removed = 0, 0
			pending, err := pendingTargets(ctx, tx, et)
			if err != nil {
				return err
			}
			cached, err := store.ListRecords(ctx, tx, et)
			if err != nil {
				return err
			}
			existing := make(map[string]models.LocalRecord, len(cached))
			for _, rec := range cached {
				existing[rec.ID] = rec
			}

			now := s.now()
			seen := make(map[string]bool, len(items))
			for _, item := range items {
				id := adapter.IDOf(item)
				if id == "" {
					continue
				}
				seen[id] = true
				if pending[id] {
					continue
				}

				payload := item.Clone()
				delete(payload, "id")
				rec, ok := existing[id]
				if ok && samePayload(rec.Payload, payload) {
					continue
				}
				rec.ID, rec.EntityType, rec.Payload, rec.UpdatedAt = id, et, payload, now
				rec.Revision++
				if err = store.PutRecord(ctx, tx, rec); err != nil {
					return err
				}
				written++
			}

			for id := range existing {
				if seen[id] || pending[id] || models.IsTempID(id) {
					continue
				}
				if err = store.DeleteRecord(ctx, tx, et, id); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		if err != nil {
			s.logger.Err(err).Str("func", "clientSyncService.refreshCaches").Str("entity_type", string(et)).
				Msg("failed to store refreshed records")
			continue
		}
		s.logger.Debug().Str("func", "clientSyncService.refreshCaches").Str("entity_type", string(et)).
			Int("fetched", len(items)).Int("written", written).Int("removed", removed).Msg("cache refreshed")
	}
}

func pendingTargets(ctx context.Context, tx store.Tx, et models.EntityType) (map[string]bool, error) {
	ops, err := store.ListOperations(ctx, tx)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool)
	for _, op := range ops {
		if op.EntityType == et && (op.State == models.StateQueued || op.State == models.StateInFlight) {
			pending[op.TargetID] = true
		}
	}
	return pending, nil
}

// samePayload compares by JSON encoding: cached numbers are float64 while
// fetched ones are json.Number.
func samePayload(a, b models.Payload) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
