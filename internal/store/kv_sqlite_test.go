// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func openSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	db, err := NewConnectSQLite(testContext(), config.ClientDB{DSN: path}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	return NewSQLiteStore(db, logger.Nop())
}

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newDBFromSQL(db *sql.DB) *DB {
	return &DB{DB: db, logger: logger.Nop()}
}

// ── Basic contract ──

func TestSQLiteStore_PutGetDelete(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	_, err := s.Get(ctx, NamespaceListings, "srv_1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, NamespaceListings, "srv_1", []byte(`{"a":1}`)))
	require.NoError(t, s.Put(ctx, NamespaceListings, "srv_1", []byte(`{"a":2}`)), "put is an upsert")

	got, err := s.Get(ctx, NamespaceListings, "srv_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got))

	require.NoError(t, s.Delete(ctx, NamespaceListings, "srv_1"))
	require.NoError(t, s.Delete(ctx, NamespaceListings, "srv_1"), "delete is idempotent")

	_, err = s.Get(ctx, NamespaceListings, "srv_1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_NamespacesAreIsolated(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	require.NoError(t, s.Put(ctx, NamespaceListings, "x", []byte("1")))
	_, err := s.Get(ctx, NamespaceTransactions, "x")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Put(ctx, Namespace("bogus"), "x", []byte("1"))
	require.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestSQLiteStore_GetAllIsKeyOrdered(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	for _, id := range []int64{10, 2, 1, 100} {
		require.NoError(t, s.Put(ctx, NamespaceSyncQueue, QueueKey(id), []byte("{}")))
	}

	entries, err := s.GetAll(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var ids []int64
	for _, e := range entries {
		id, err := ParseQueueKey(e.Key)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{1, 2, 10, 100}, ids)
}

func TestSQLiteStore_NextSequence(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, NamespaceSyncQueue)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, s.advanceSequence(ctx, NamespaceSyncQueue, 10))
	got, err := s.NextSequence(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got)

	require.NoError(t, s.advanceSequence(ctx, NamespaceSyncQueue, 5), "advance never moves backwards")
	got, err = s.NextSequence(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)
}

// ── Transactions ──

func TestSQLiteStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.Put(ctx, NamespaceListings, "a", []byte("1")))
		_, err := tx.NextSequence(ctx, NamespaceSyncQueue)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, NamespaceListings, "a")
	require.ErrorIs(t, err, ErrNotFound)

	next, err := s.NextSequence(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "rolled back sequence is not consumed")
}

func TestSQLiteStore_UpdateSeesOwnWrites(t *testing.T) {
	ctx := testContext()
	s := openSQLiteStore(t, filepath.Join(t.TempDir(), "engine.db"))
	defer s.Close()

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.Put(ctx, NamespaceUserData, "k", []byte("v")); err != nil {
			return err
		}
		got, err := tx.Get(ctx, NamespaceUserData, "k")
		if err != nil {
			return err
		}
		assert.Equal(t, "v", string(got))
		return nil
	})
	require.NoError(t, err)
}

// ── Durability ──

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := testContext()
	path := filepath.Join(t.TempDir(), "nested", "engine.db")

	s := openSQLiteStore(t, path)
	require.NoError(t, s.Put(ctx, NamespaceListings, "tmp_1", []byte(`{"crop":"Maize"}`)))
	_, err := s.NextSequence(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Get(ctx, NamespaceListings, "tmp_1")
	require.ErrorIs(t, err, ErrStoreClosed)

	reopened := openSQLiteStore(t, path)
	defer reopened.Close()

	got, err := reopened.Get(ctx, NamespaceListings, "tmp_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"crop":"Maize"}`, string(got))

	next, err := reopened.NextSequence(ctx, NamespaceSyncQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}

// ── Low-level failures ──

func TestSQLiteStore_ExecFailureIsStorageError(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewSQLiteStore(newDBFromSQL(db), logger.Nop())

	mock.ExpectExec("INSERT INTO entries").WillReturnError(errors.New("disk I/O error"))

	err := s.Put(testContext(), NamespaceListings, "a", []byte("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrExecutingStatement)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.Equal(t, NamespaceListings, se.Namespace)
	assert.Equal(t, "a", se.Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_CommitFailureIsStorageError(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewSQLiteStore(newDBFromSQL(db), logger.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := s.Update(testContext(), func(tx Tx) error {
		return tx.Delete(testContext(), NamespaceListings, "a")
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrCommitingTransaction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_QueryFailureOnGet(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewSQLiteStore(newDBFromSQL(db), logger.Nop())

	mock.ExpectQuery("SELECT value FROM entries").WillReturnError(errors.New("malformed"))

	_, err := s.Get(testContext(), NamespaceUserData, "session")
	assert.ErrorIs(t, err, ErrStorage)
	assert.False(t, IsNotFound(err))
}
