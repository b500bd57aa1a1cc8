// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Field names accepted by [RecordValidator.Validate].
const (
	FieldVerb       = "verb"
	FieldEntityType = "entity_type"
	FieldID         = "id"
	FieldPayload    = "payload"
	FieldTitle      = "title"
	FieldPrice      = "price"
	FieldQuantity   = "quantity"
	FieldListingID  = "listingId"
)

// RecordValidator validates [models.RemoteMutation] values.
type RecordValidator struct {
}

func NewRecordValidator() Validator {
	return &RecordValidator{}
}

// Validate dispatches on the dynamic type of obj. Without fields, the
// default set for the mutation's verb is checked.
func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RemoteMutation:
		return v.validateMutation(ctx, value, fields...)
	case *models.RemoteMutation:
		return v.validateMutation(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func defaultFields(m models.RemoteMutation) []string {
	switch m.Verb {
	case models.Create:
		fields := []string{FieldVerb, FieldEntityType, FieldPrice, FieldQuantity}
		switch m.EntityType {
		case models.Listings:
			fields = append(fields, FieldTitle)
		case models.Transactions:
			fields = append(fields, FieldListingID)
		}
		return fields
	case models.Update:
		return []string{FieldVerb, FieldEntityType, FieldID, FieldPayload, FieldTitle, FieldPrice, FieldQuantity}
	}
	return []string{FieldVerb, FieldEntityType, FieldID}
}

func (v *RecordValidator) validateMutation(_ context.Context, m models.RemoteMutation, fields ...string) error {
	if len(fields) == 0 {
		fields = defaultFields(m)
	}
	create := m.Verb == models.Create

	for _, f := range fields {
		switch f {
		case FieldVerb:
			if !m.Verb.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidVerb, m.Verb)
			}
		case FieldEntityType:
			if !m.EntityType.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidEntityType, m.EntityType)
			}
		case FieldID:
			if m.ID == "" {
				return ErrEmptyID
			}
			if models.IsTempID(m.ID) {
				return fmt.Errorf("%w: %s", ErrTemporaryID, m.ID)
			}
		case FieldPayload:
			if len(m.Payload) == 0 {
				return ErrNoFieldsToUpdate
			}
		case FieldTitle:
			title, present := m.Payload[FieldTitle]
			if !present && !create {
				continue
			}
			if s, ok := title.(string); !ok || strings.TrimSpace(s) == "" {
				return ErrEmptyTitle
			}
		case FieldListingID:
			if s, ok := m.Payload[FieldListingID].(string); !ok || s == "" {
				return ErrEmptyListingID
			}
		case FieldPrice:
			raw, present := m.Payload[FieldPrice]
			if !present {
				continue
			}
			if n, ok := number(raw); !ok || n < 0 {
				return ErrInvalidPrice
			}
		case FieldQuantity:
			raw, present := m.Payload[FieldQuantity]
			if !present {
				continue
			}
			if n, ok := number(raw); !ok || n <= 0 {
				return ErrInvalidQuantity
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
