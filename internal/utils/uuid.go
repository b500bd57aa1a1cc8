// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"github.com/google/uuid"

	"github.com/MKhiriev/go-offline-sync/models"
)

// UUIDGenerator mints time-ordered identifiers. Version 7 UUIDs sort by
// creation time, so temp ids and idempotency keys minted later compare
// greater.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// TempID returns a fresh locally-minted record identifier.
func (g *UUIDGenerator) TempID() string {
	return models.TempIDPrefix + g.Generate()
}
