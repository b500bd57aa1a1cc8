// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"strings"
	"time"
)

// EntityType names a domain collection that is cached locally and synced
// against the remote API. Each entity type maps to its own store namespace
// and its own sync lane.
type EntityType string

const (
	// Listings are produce listings created by farmers.
	Listings EntityType = "listings"

	// Transactions are purchase/sale transactions between users.
	Transactions EntityType = "transactions"
)

// EntityTypes returns every entity type the engine knows how to sync, in a
// stable order.
func EntityTypes() []EntityType {
	return []EntityType{Listings, Transactions}
}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case Listings, Transactions:
		return true
	}
	return false
}

func (e EntityType) String() string {
	return string(e)
}

// TempIDPrefix is the reserved prefix of locally-minted identifiers. Server
// issued identifiers never start with it.
const TempIDPrefix = "tmp_"

// IsTempID reports whether id was minted locally and still awaits its
// canonical server identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Payload holds opaque domain fields of a record or operation. The engine
// never interprets them beyond merging top-level keys.
type Payload map[string]any

// Clone returns a shallow copy of p. A nil payload clones to an empty one.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every top-level key of patch applied on top.
func (p Payload) Merge(patch Payload) Payload {
	out := p.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// LocalRecord is the cached copy of a domain entity.
//
// ID is either a canonical server identifier or a temporary one (see
// [IsTempID]). Revision is bumped on every local write. OriginTempID is set
// once a temporary record was replaced by its canonical counterpart.
type LocalRecord struct {
	ID           string     `json:"id"`
	EntityType   EntityType `json:"entity_type"`
	Payload      Payload    `json:"payload"`
	Revision     int64      `json:"revision"`
	OriginTempID *string    `json:"origin_temp_id,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsTemporary reports whether the record is still keyed by a temporary id.
func (r LocalRecord) IsTemporary() bool {
	return IsTempID(r.ID)
}
