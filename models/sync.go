// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// ConnectivityState is the process-wide network reachability as last
// observed. It is always re-derived at startup and never persisted.
type ConnectivityState int

const (
	Offline ConnectivityState = iota
	Online
)

func (c ConnectivityState) String() string {
	if c == Online {
		return "online"
	}
	return "offline"
}

// SyncPhase describes what the sync engine is doing right now.
type SyncPhase string

const (
	PhaseIdle    SyncPhase = "idle"
	PhaseSyncing SyncPhase = "syncing"
	PhaseOffline SyncPhase = "offline"
	// PhasePaused means the auth session was invalidated and the engine
	// waits for a new one.
	PhasePaused SyncPhase = "paused"
)

// SyncStatus is the snapshot published to status subscribers.
type SyncStatus struct {
	Phase        SyncPhase
	Connectivity ConnectivityState
	Queued       int
	InFlight     int
	Dead         int
	LastPassAt   *time.Time
	LastReport   *SyncReport
	LastError    string
}

// SyncReport summarizes the outcome of one sync pass.
type SyncReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Claimed    int
	Synced     int
	Retried    int
	Dead       int
	Deferred   int
	// Interrupted is set when the pass stopped claiming early because the
	// device went offline or the session was invalidated.
	Interrupted bool
}

// SyncSession is the ephemeral state of an active sync pass. At most one
// exists at a time.
type SyncSession struct {
	ID        string
	StartedAt time.Time
	Claimed   map[int64]OperationState
}

// NewSyncSession starts an empty session.
func NewSyncSession(id string, startedAt time.Time) *SyncSession {
	return &SyncSession{ID: id, StartedAt: startedAt, Claimed: make(map[int64]OperationState)}
}

// RemoteResult is what the remote API returned for one dispatched
// operation. CanonicalID is empty when the response carried no id.
type RemoteResult struct {
	StatusCode   int
	CanonicalID  string
	ServerFields Payload
}
