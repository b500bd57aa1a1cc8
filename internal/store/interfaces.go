// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package store implements the durable record store: a namespaced key/value
// store backed by SQLite, an in-memory twin, and a fallback wrapper that
// keeps the session alive in memory when the disk misbehaves.
package store

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Entry is a single key/value pair of a namespace.
type Entry struct {
	Key   string
	Value []byte
}

// Tx is the set of operations available both on a [Store] directly and
// inside [Store.Update]. Every write is durable once it returns (or once the
// surrounding Update commits). Writes are idempotent: repeating a Put or
// Delete with the same arguments leaves the store unchanged.
type Tx interface {
	// Get returns the value stored under key or [ErrNotFound].
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)

	// GetAll returns every entry of ns in ascending key order.
	GetAll(ctx context.Context, ns Namespace) ([]Entry, error)

	// Put inserts or replaces the value under key.
	Put(ctx context.Context, ns Namespace, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, ns Namespace, key string) error

	// NextSequence returns the next value of the per-namespace counter,
	// starting at 1. Values are never reused.
	NextSequence(ctx context.Context, ns Namespace) (int64, error)
}

// Store is the durable record store.
type Store interface {
	Tx

	// Update runs fn inside a single durable transaction. If fn returns an
	// error nothing it wrote is kept.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// sequenceAdvancer is implemented by stores whose counters can be moved
// forward explicitly. The fallback store uses it to replay counters that
// were handed out while the disk was unavailable.
type sequenceAdvancer interface {
	advanceSequence(ctx context.Context, ns Namespace, atLeast int64) error
}
