// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// Verb is the kind of mutation a PendingOperation replays remotely.
type Verb string

const (
	Create Verb = "create"
	Update Verb = "update"
	Delete Verb = "delete"
)

// Valid reports whether v is a known verb.
func (v Verb) Valid() bool {
	switch v {
	case Create, Update, Delete:
		return true
	}
	return false
}

// OperationState is the lifecycle state of a PendingOperation.
//
//	Queued → InFlight → Synced
//	InFlight → Queued     (retryable failure, after backoff)
//	InFlight → Dead       (permanent failure or attempts exhausted)
//	Queued → Cancelled    (withdrawn by the user)
//	Queued → Dead         (dependency can never be satisfied)
type OperationState string

const (
	StateQueued    OperationState = "queued"
	StateInFlight  OperationState = "in_flight"
	StateSynced    OperationState = "synced"
	StateDead      OperationState = "dead"
	StateCancelled OperationState = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OperationState) Terminal() bool {
	return s == StateSynced || s == StateDead || s == StateCancelled
}

var allowedTransitions = map[OperationState][]OperationState{
	StateQueued:   {StateInFlight, StateCancelled, StateDead},
	StateInFlight: {StateSynced, StateQueued, StateDead},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to OperationState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PendingOperation is one durable unit of work in the sync queue.
//
// QueueID is assigned from an auto-incrementing sequence and defines FIFO
// order. DependsOnQueueID points at the Create that mints the canonical id
// of a temporary TargetID. NotBefore is set after a retryable failure and
// holds the earliest moment the operation may be claimed again.
type PendingOperation struct {
	QueueID          int64          `json:"queue_id"`
	EntityType       EntityType     `json:"entity_type"`
	TargetID         string         `json:"target_id"`
	Verb             Verb           `json:"verb"`
	Payload          Payload        `json:"payload"`
	EnqueuedAt       time.Time      `json:"enqueued_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	State            OperationState `json:"state"`
	AttemptCount     int            `json:"attempt_count"`
	LastError        string         `json:"last_error,omitempty"`
	DependsOnQueueID *int64         `json:"depends_on_queue_id,omitempty"`
	NotBefore        *time.Time     `json:"not_before,omitempty"`
	IdempotencyKey   string         `json:"idempotency_key"`
	CanonicalID      string         `json:"canonical_id,omitempty"`
}

// Ready reports whether the operation may be claimed at now.
func (o PendingOperation) Ready(now time.Time) bool {
	if o.State != StateQueued {
		return false
	}
	return o.NotBefore == nil || !o.NotBefore.After(now)
}

func (o PendingOperation) String() string {
	return fmt.Sprintf("#%d %s %s/%s (%s)", o.QueueID, o.Verb, o.EntityType, o.TargetID, o.State)
}
