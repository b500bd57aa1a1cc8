// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidVerb       = errors.New("invalid verb")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrEmptyID           = errors.New("id is required")
	ErrTemporaryID       = errors.New("temporary ids are not accepted by the server")
	ErrNoFieldsToUpdate  = errors.New("at least one field must be provided for update")
	ErrEmptyTitle        = errors.New("title is required")
	ErrInvalidPrice      = errors.New("price must be a non-negative number")
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
	ErrEmptyListingID    = errors.New("listingId is required")
)
