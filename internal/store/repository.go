// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// The helpers below give typed access to the fixed namespaces. They accept
// a [Tx] so they work both on a [Store] and inside [Store.Update].

func GetRecord(ctx context.Context, tx Tx, et models.EntityType, id string) (models.LocalRecord, error) {
	ns, err := RecordNamespace(et)
	if err != nil {
		return models.LocalRecord{}, err
	}

	var rec models.LocalRecord
	if err = getJSON(ctx, tx, ns, id, &rec); err != nil {
		return models.LocalRecord{}, err
	}
	return rec, nil
}

func PutRecord(ctx context.Context, tx Tx, rec models.LocalRecord) error {
	ns, err := RecordNamespace(rec.EntityType)
	if err != nil {
		return err
	}
	return putJSON(ctx, tx, ns, rec.ID, rec)
}

func DeleteRecord(ctx context.Context, tx Tx, et models.EntityType, id string) error {
	ns, err := RecordNamespace(et)
	if err != nil {
		return err
	}
	return tx.Delete(ctx, ns, id)
}

func ListRecords(ctx context.Context, tx Tx, et models.EntityType) ([]models.LocalRecord, error) {
	ns, err := RecordNamespace(et)
	if err != nil {
		return nil, err
	}

	entries, err := tx.GetAll(ctx, ns)
	if err != nil {
		return nil, err
	}

	records := make([]models.LocalRecord, 0, len(entries))
	for _, e := range entries {
		var rec models.LocalRecord
		if err = json.Unmarshal(e.Value, &rec); err != nil {
			return nil, storageErr("decode", ns, e.Key, fmt.Errorf("%w: %w", ErrDecodingValue, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func GetOperation(ctx context.Context, tx Tx, queueID int64) (models.PendingOperation, error) {
	var op models.PendingOperation
	if err := getJSON(ctx, tx, NamespaceSyncQueue, QueueKey(queueID), &op); err != nil {
		return models.PendingOperation{}, err
	}
	return op, nil
}

func PutOperation(ctx context.Context, tx Tx, op models.PendingOperation) error {
	return putJSON(ctx, tx, NamespaceSyncQueue, QueueKey(op.QueueID), op)
}

func DeleteOperation(ctx context.Context, tx Tx, queueID int64) error {
	return tx.Delete(ctx, NamespaceSyncQueue, QueueKey(queueID))
}

// ListOperations returns the whole sync queue in FIFO order.
func ListOperations(ctx context.Context, tx Tx) ([]models.PendingOperation, error) {
	entries, err := tx.GetAll(ctx, NamespaceSyncQueue)
	if err != nil {
		return nil, err
	}

	ops := make([]models.PendingOperation, 0, len(entries))
	for _, e := range entries {
		var op models.PendingOperation
		if err = json.Unmarshal(e.Value, &op); err != nil {
			return nil, storageErr("decode", NamespaceSyncQueue, e.Key, fmt.Errorf("%w: %w", ErrDecodingValue, err))
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// GetUserData decodes userData[key] into v.
func GetUserData(ctx context.Context, tx Tx, key string, v any) error {
	return getJSON(ctx, tx, NamespaceUserData, key, v)
}

func PutUserData(ctx context.Context, tx Tx, key string, v any) error {
	return putJSON(ctx, tx, NamespaceUserData, key, v)
}

func DeleteUserData(ctx context.Context, tx Tx, key string) error {
	return tx.Delete(ctx, NamespaceUserData, key)
}

func getJSON(ctx context.Context, tx Tx, ns Namespace, key string, v any) error {
	raw, err := tx.Get(ctx, ns, key)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return storageErr("decode", ns, key, fmt.Errorf("%w: %w", ErrDecodingValue, err))
	}
	return nil
}

func putJSON(ctx context.Context, tx Tx, ns Namespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ns, key, err)
	}
	return tx.Put(ctx, ns, key, raw)
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
