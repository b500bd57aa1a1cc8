// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"network", &OperationError{Kind: ErrNetwork}, Retryable},
		{"server", &OperationError{Kind: ErrServer, StatusCode: 503}, Retryable},
		{"unauthorized", &OperationError{Kind: ErrUnauthorized, StatusCode: 401}, AuthExpired},
		{"auth", fmt.Errorf("%w: %w", ErrAuth, ErrNoSession), AuthExpired},
		{"validation", &OperationError{Kind: ErrValidation, StatusCode: 422}, NonRetryable},
		{"conflict", &OperationError{Kind: ErrConflict, StatusCode: 409}, NonRetryable},
		{"unsupported verb", fmt.Errorf("%w: %q", ErrUnsupportedVerb, "patch"), NonRetryable},
		{"deadline", context.DeadlineExceeded, Retryable},
		{"unknown", errors.New("boom"), Retryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestOperationError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&OperationError{Method: "POST", Path: "/listings", Kind: ErrNetwork, Body: cause.Error(), Err: cause})

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "POST /listings")
}

func TestOperationError_MessageWithStatus(t *testing.T) {
	err := &OperationError{Method: "PUT", Path: "/listings/1", StatusCode: 422, Kind: ErrValidation, Body: `{"error":"bad"}`}
	assert.Equal(t, `PUT /listings/1: validation error (http 422): {"error":"bad"}`, err.Error())

	err.Body = ""
	assert.Equal(t, "PUT /listings/1: validation error (http 422)", err.Error())
}

func TestErrorClassification_String(t *testing.T) {
	assert.Equal(t, "retryable", Retryable.String())
	assert.Equal(t, "auth_expired", AuthExpired.String())
	assert.Equal(t, "non_retryable", NonRetryable.String())
}
