// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks remote mutations against the business rules of
// the development API before they reach storage.
//
// A [Validator] validates an arbitrary value and may be restricted to a
// subset of named fields. Validation failures wrap one of the sentinel
// errors in errors.go so transport layers can map them to 422.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input values.
type Validator interface {
	// Validate validates the provided input and optionally
	// restricts validation to specific named fields.
	Validate(context.Context, any, ...string) error
}
