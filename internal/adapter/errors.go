// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy of the transport. Callers use [errors.Is] against these
// values or [Classify] to decide what to do with a failure.
var (
	// ErrNetwork covers unreachable hosts, dropped connections, timeouts
	// and 408 responses.
	ErrNetwork = errors.New("network error")

	// ErrServer covers 5xx and 429 responses.
	ErrServer = errors.New("server error")

	// ErrUnauthorized is a 401 on an authenticated call.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrAuth means the session could not be (re)established: the refresh
	// token was rejected or no session exists. The engine pauses on it.
	ErrAuth = errors.New("authentication failed")

	// ErrNoSession is wrapped into ErrAuth when no session is active.
	ErrNoSession = errors.New("no active session")

	// ErrValidation covers 4xx responses other than 401, 408, 409 and 429.
	ErrValidation = errors.New("validation error")

	// ErrConflict is a 409 response.
	ErrConflict = errors.New("conflict")

	// ErrUnsupportedVerb is returned for operations the transport can't map.
	ErrUnsupportedVerb = errors.New("unsupported verb")
)

// OperationError carries the HTTP details of a failed call. Kind is one of
// the sentinel errors above.
type OperationError struct {
	Method     string
	Path       string
	StatusCode int
	Kind       error
	Body       string
	// Err is the underlying cause when no response was received.
	Err error
}

func (e *OperationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v: %s", e.Method, e.Path, e.Kind, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %v (http %d)", e.Method, e.Path, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v (http %d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Body)
}

func (e *OperationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ErrorClassification tells the supervisor what to do with a failed
// dispatch.
type ErrorClassification int

const (
	// NonRetryable failures make the operation Dead.
	NonRetryable ErrorClassification = iota

	// Retryable failures are requeued with backoff until attempts run out.
	Retryable

	// AuthExpired failures requeue the operation without penalty and pause
	// the engine until a new session exists.
	AuthExpired
)

func (c ErrorClassification) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case AuthExpired:
		return "auth_expired"
	default:
		return "non_retryable"
	}
}

// Classify maps an error returned by a [Transport] or [RemoteAPI] onto an
// [ErrorClassification]. Unknown errors are Retryable: they are bounded by
// the attempt budget and never dropped silently.
func Classify(err error) ErrorClassification {
	switch {
	case err == nil:
		return NonRetryable
	case errors.Is(err, ErrAuth), errors.Is(err, ErrUnauthorized):
		return AuthExpired
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrUnsupportedVerb):
		return NonRetryable
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrServer),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Retryable
	}
	return Retryable
}
