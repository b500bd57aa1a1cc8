// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	entriesTable   = "entries"
	sequencesTable = "sequences"
)

// psql is the statement builder for SQLite: question-mark placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func buildGetEntryQuery(ns Namespace, key string) (string, []any, error) {
	return psql.Select("value").
		From(entriesTable).
		Where(sq.Eq{"namespace": string(ns), "key": key}).
		ToSql()
}

func buildGetAllEntriesQuery(ns Namespace) (string, []any, error) {
	return psql.Select("key", "value").
		From(entriesTable).
		Where(sq.Eq{"namespace": string(ns)}).
		OrderBy("key ASC").
		ToSql()
}

func buildPutEntryQuery(ns Namespace, key string, value []byte, now time.Time) (string, []any, error) {
	return psql.Insert(entriesTable).
		Columns("namespace", "key", "value", "updated_at").
		Values(string(ns), key, value, now.UTC()).
		Suffix("ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
}

func buildDeleteEntryQuery(ns Namespace, key string) (string, []any, error) {
	return psql.Delete(entriesTable).
		Where(sq.Eq{"namespace": string(ns), "key": key}).
		ToSql()
}

func buildNextSequenceQuery(ns Namespace) (string, []any, error) {
	return psql.Insert(sequencesTable).
		Columns("namespace", "value").
		Values(string(ns), 1).
		Suffix("ON CONFLICT(namespace) DO UPDATE SET value = value + 1 RETURNING value").
		ToSql()
}

func buildAdvanceSequenceQuery(ns Namespace, atLeast int64) (string, []any, error) {
	return psql.Insert(sequencesTable).
		Columns("namespace", "value").
		Values(string(ns), atLeast).
		Suffix("ON CONFLICT(namespace) DO UPDATE SET value = MAX(value, excluded.value)").
		ToSql()
}
