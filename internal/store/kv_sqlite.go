// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the durable [Store] backed by the entries/sequences tables.
type SQLiteStore struct {
	db     *DB
	closed atomic.Bool
	now    func() time.Time
	logger *logger.Logger
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *DB, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now, logger: log}
}

func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if err := s.check(ns); err != nil {
		return nil, err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).Get(ctx, ns, key)
}

func (s *SQLiteStore) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	if err := s.check(ns); err != nil {
		return nil, err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).GetAll(ctx, ns)
}

func (s *SQLiteStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	if err := s.check(ns); err != nil {
		return err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).Put(ctx, ns, key, value)
}

func (s *SQLiteStore) Delete(ctx context.Context, ns Namespace, key string) error {
	if err := s.check(ns); err != nil {
		return err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).Delete(ctx, ns, key)
}

func (s *SQLiteStore) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	if err := s.check(ns); err != nil {
		return 0, err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).NextSequence(ctx, ns)
}

func (s *SQLiteStore) advanceSequence(ctx context.Context, ns Namespace, atLeast int64) error {
	if err := s.check(ns); err != nil {
		return err
	}
	return (&sqliteTx{q: s.db.DB, now: s.now, logger: s.logger}).advanceSequence(ctx, ns, atLeast)
}

// Update runs fn in one SQLite transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Err(err).Str("func", "SQLiteStore.Update").Msg("failed to begin transaction")
		return storageErr("begin", "", "", fmt.Errorf("%w: %w", ErrBeginningTransaction, err))
	}

	if err = fn(&sqliteTx{q: tx, now: s.now, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Err(rbErr).Str("func", "SQLiteStore.Update").Msg("failed to rollback transaction")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Err(err).Str("func", "SQLiteStore.Update").Msg("failed to commit transaction")
		return storageErr("commit", "", "", fmt.Errorf("%w: %w", ErrCommitingTransaction, err))
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) check(ns Namespace) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return nil
}

type sqliteTx struct {
	q      queryer
	now    func() time.Time
	logger *logger.Logger
}

func (t *sqliteTx) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if !ns.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	query, args, err := buildGetEntryQuery(ns, key)
	if err != nil {
		return nil, storageErr("get", ns, key, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	var value []byte
	err = t.q.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		t.logger.Err(err).Str("func", "sqliteTx.Get").Str("namespace", string(ns)).Str("key", key).Msg("failed to read entry")
		return nil, storageErr("get", ns, key, fmt.Errorf("%w: %w", ErrScanningRow, err))
	}

	return value, nil
}

func (t *sqliteTx) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	if !ns.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	query, args, err := buildGetAllEntriesQuery(ns)
	if err != nil {
		return nil, storageErr("get all", ns, "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		t.logger.Err(err).Str("func", "sqliteTx.GetAll").Str("namespace", string(ns)).Msg("failed to query entries")
		return nil, storageErr("get all", ns, "", fmt.Errorf("%w: %w", ErrExecutingQuery, err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err = rows.Scan(&e.Key, &e.Value); err != nil {
			t.logger.Err(err).Str("func", "sqliteTx.GetAll").Str("namespace", string(ns)).Msg("failed to scan entry")
			return nil, storageErr("get all", ns, "", fmt.Errorf("%w: %w", ErrScanningRow, err))
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("get all", ns, "", fmt.Errorf("%w: %w", ErrScanningRow, err))
	}

	return entries, nil
}

func (t *sqliteTx) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	query, args, err := buildPutEntryQuery(ns, key, value, t.now())
	if err != nil {
		return storageErr("put", ns, key, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	if _, err = t.q.ExecContext(ctx, query, args...); err != nil {
		t.logger.Err(err).Str("func", "sqliteTx.Put").Str("namespace", string(ns)).Str("key", key).Msg("failed to write entry")
		return storageErr("put", ns, key, fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return nil
}

func (t *sqliteTx) Delete(ctx context.Context, ns Namespace, key string) error {
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	query, args, err := buildDeleteEntryQuery(ns, key)
	if err != nil {
		return storageErr("delete", ns, key, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	if _, err = t.q.ExecContext(ctx, query, args...); err != nil {
		t.logger.Err(err).Str("func", "sqliteTx.Delete").Str("namespace", string(ns)).Str("key", key).Msg("failed to delete entry")
		return storageErr("delete", ns, key, fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return nil
}

func (t *sqliteTx) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	if !ns.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}

	query, args, err := buildNextSequenceQuery(ns)
	if err != nil {
		return 0, storageErr("sequence", ns, "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	var next int64
	if err = t.q.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		t.logger.Err(err).Str("func", "sqliteTx.NextSequence").Str("namespace", string(ns)).Msg("failed to advance sequence")
		return 0, storageErr("sequence", ns, "", fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return next, nil
}

func (t *sqliteTx) advanceSequence(ctx context.Context, ns Namespace, atLeast int64) error {
	query, args, err := buildAdvanceSequenceQuery(ns, atLeast)
	if err != nil {
		return storageErr("sequence", ns, "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err))
	}

	if _, err = t.q.ExecContext(ctx, query, args...); err != nil {
		return storageErr("sequence", ns, "", fmt.Errorf("%w: %w", ErrExecutingStatement, err))
	}

	return nil
}
