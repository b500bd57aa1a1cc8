// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// RemoteMutation is a write as the development server receives it. The
// server applies it at most once per IdempotencyKey.
type RemoteMutation struct {
	Verb           Verb
	EntityType     EntityType
	ID             string
	Payload        Payload
	IdempotencyKey string
	// Fingerprint identifies the request body so a reused key with a
	// different body can be told apart from a replay.
	Fingerprint string
}

// MutationResult is what the server answered for a mutation. A replay of
// the same idempotency key returns the stored result with Replayed set.
type MutationResult struct {
	StatusCode int     `json:"status_code"`
	Fields     Payload `json:"fields,omitempty"`
	Replayed   bool    `json:"-"`
}
