// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package utils provides general-purpose helper utilities used across the
// engine: identifier generation, the resty client wrapper, JWT helpers,
// JSON response writing and payload fingerprints.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
type contextKey string

func (c contextKey) String() string {
	return string(c)
}

// SubjectCtxKey stores the authenticated token subject in a request context.
var SubjectCtxKey = contextKey("subject")

// GetSubjectFromContext retrieves the authenticated subject. ok is false when
// the request was not authenticated.
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectCtxKey).(string)
	return subject, ok && subject != ""
}
