// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/models"
)

func TestRecords_RoundTripPerEntityType(t *testing.T) {
	ctx := testContext()
	m := NewMemoryStore()

	listing := models.LocalRecord{
		ID:         "tmp_a",
		EntityType: models.Listings,
		Payload:    models.Payload{"crop": "Maize", "qty": float64(50)},
		Revision:   1,
		UpdatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, PutRecord(ctx, m, listing))
	require.NoError(t, PutRecord(ctx, m, models.LocalRecord{ID: "srv_9", EntityType: models.Transactions}))

	got, err := GetRecord(ctx, m, models.Listings, "tmp_a")
	require.NoError(t, err)
	assert.Equal(t, listing, got)

	_, err = GetRecord(ctx, m, models.Transactions, "tmp_a")
	assert.ErrorIs(t, err, ErrNotFound)

	listings, err := ListRecords(ctx, m, models.Listings)
	require.NoError(t, err)
	assert.Len(t, listings, 1)

	require.NoError(t, DeleteRecord(ctx, m, models.Listings, "tmp_a"))
	listings, err = ListRecords(ctx, m, models.Listings)
	require.NoError(t, err)
	assert.Empty(t, listings)

	_, err = ListRecords(ctx, m, models.EntityType("farms"))
	assert.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestOperations_ListedInQueueOrder(t *testing.T) {
	ctx := testContext()
	m := NewMemoryStore()

	for _, id := range []int64{12, 3, 7} {
		require.NoError(t, PutOperation(ctx, m, models.PendingOperation{
			QueueID: id, EntityType: models.Listings, TargetID: "srv_1", Verb: models.Update, State: models.StateQueued,
		}))
	}

	ops, err := ListOperations(ctx, m)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, int64(3), ops[0].QueueID)
	assert.Equal(t, int64(7), ops[1].QueueID)
	assert.Equal(t, int64(12), ops[2].QueueID)

	require.NoError(t, DeleteOperation(ctx, m, 7))
	_, err = GetOperation(ctx, m, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOperations_CorruptValueIsStorageError(t *testing.T) {
	ctx := testContext()
	m := NewMemoryStore()
	require.NoError(t, m.Put(ctx, NamespaceSyncQueue, QueueKey(1), []byte("{not json")))

	_, err := GetOperation(ctx, m, 1)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrDecodingValue)
}

func TestUserData_RoundTrip(t *testing.T) {
	ctx := testContext()
	m := NewMemoryStore()

	type session struct{ Token string }
	require.NoError(t, PutUserData(ctx, m, "session", session{Token: "t"}))

	var got session
	require.NoError(t, GetUserData(ctx, m, "session", &got))
	assert.Equal(t, "t", got.Token)

	require.NoError(t, DeleteUserData(ctx, m, "session"))
	assert.True(t, IsNotFound(GetUserData(ctx, m, "session", &got)))
}
