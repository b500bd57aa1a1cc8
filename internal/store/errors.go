// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store. Callers should use [errors.Is] to
// match against these values.
var (
	// ErrNotFound is returned when a key does not exist in the requested
	// namespace. It is a normal outcome, not a storage failure.
	ErrNotFound = errors.New("key not found")

	// ErrStorage matches every [*StorageError]. The fallback store uses it to
	// decide when to degrade to memory.
	ErrStorage = errors.New("storage failure")

	// ErrUnknownNamespace is returned when a namespace outside the fixed
	// schema is used.
	ErrUnknownNamespace = errors.New("unknown namespace")

	// ErrStoreClosed is returned by every method after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// Low-level database operation errors. They are wrapped into a
// [*StorageError] before leaving the package.
var (
	ErrBuildingSQLQuery     = errors.New("error building sql query")
	ErrExecutingQuery       = errors.New("error executing sql query")
	ErrBeginningTransaction = errors.New("failed to begin transaction")
	ErrCommitingTransaction = errors.New("failed to commit transaction")
	ErrExecutingStatement   = errors.New("failed to execute statement")
	ErrScanningRow          = errors.New("failed to scan row")
	ErrDecodingValue        = errors.New("failed to decode stored value")
)

// StorageError describes a failed low-level read or write. It always
// satisfies errors.Is(err, ErrStorage).
type StorageError struct {
	Op        string
	Namespace Namespace
	Key       string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Namespace, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorage as a match so callers don't need errors.As.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, ns Namespace, key string, err error) error {
	return &StorageError{Op: op, Namespace: ns, Key: key, Err: err}
}
