// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func createListing(p models.Payload) models.RemoteMutation {
	return models.RemoteMutation{Verb: models.Create, EntityType: models.Listings, Payload: p}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestNewRecordValidator(t *testing.T) {
	require.NotNil(t, NewRecordValidator())
}

func TestValidate_Dispatch(t *testing.T) {
	v := NewRecordValidator()
	ctx := context.Background()

	m := createListing(models.Payload{"title": "Maize"})
	assert.NoError(t, v.Validate(ctx, m))
	assert.NoError(t, v.Validate(ctx, &m))
	assert.ErrorIs(t, v.Validate(ctx, "listing"), ErrUnsupportedType)
}

func TestValidate_UnknownField(t *testing.T) {
	v := NewRecordValidator()
	err := v.Validate(context.Background(), createListing(models.Payload{"title": "x"}), "colour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

func TestValidate_Mutation(t *testing.T) {
	tests := []struct {
		name    string
		m       models.RemoteMutation
		wantErr error
	}{
		{
			name: "listing create",
			m:    createListing(models.Payload{"title": "Maize", "price": 120.0}),
		},
		{
			name:    "listing create without title",
			m:       createListing(models.Payload{"price": 1.0}),
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "listing create with blank title",
			m:       createListing(models.Payload{"title": "   "}),
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "negative price",
			m:       createListing(models.Payload{"title": "Maize", "price": -1.0}),
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "price is not a number",
			m:       createListing(models.Payload{"title": "Maize", "price": "cheap"}),
			wantErr: ErrInvalidPrice,
		},
		{
			name: "json number price",
			m:    createListing(models.Payload{"title": "Maize", "price": json.Number("3.5")}),
		},
		{
			name: "transaction create",
			m: models.RemoteMutation{Verb: models.Create, EntityType: models.Transactions,
				Payload: models.Payload{"listingId": "L-1", "quantity": 2.0}},
		},
		{
			name: "transaction without listing",
			m: models.RemoteMutation{Verb: models.Create, EntityType: models.Transactions,
				Payload: models.Payload{"quantity": 2.0}},
			wantErr: ErrEmptyListingID,
		},
		{
			name: "zero quantity",
			m: models.RemoteMutation{Verb: models.Create, EntityType: models.Transactions,
				Payload: models.Payload{"listingId": "L-1", "quantity": 0.0}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "update without title keeps title optional",
			m:    models.RemoteMutation{Verb: models.Update, EntityType: models.Listings, ID: "L-1", Payload: models.Payload{"price": 4.0}},
		},
		{
			name:    "update with empty title",
			m:       models.RemoteMutation{Verb: models.Update, EntityType: models.Listings, ID: "L-1", Payload: models.Payload{"title": ""}},
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "update without fields",
			m:       models.RemoteMutation{Verb: models.Update, EntityType: models.Listings, ID: "L-1"},
			wantErr: ErrNoFieldsToUpdate,
		},
		{
			name:    "update of temporary id",
			m:       models.RemoteMutation{Verb: models.Update, EntityType: models.Listings, ID: "tmp_1", Payload: models.Payload{"price": 1.0}},
			wantErr: ErrTemporaryID,
		},
		{
			name: "delete",
			m:    models.RemoteMutation{Verb: models.Delete, EntityType: models.Listings, ID: "L-1"},
		},
		{
			name:    "delete without id",
			m:       models.RemoteMutation{Verb: models.Delete, EntityType: models.Listings},
			wantErr: ErrEmptyID,
		},
		{
			name:    "unknown entity type",
			m:       models.RemoteMutation{Verb: models.Delete, EntityType: "farms", ID: "F-1"},
			wantErr: ErrInvalidEntityType,
		},
		{
			name:    "unknown verb",
			m:       models.RemoteMutation{Verb: "patch", EntityType: models.Listings, ID: "L-1"},
			wantErr: ErrInvalidVerb,
		},
	}

	v := NewRecordValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.m)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
