// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

var (
	// ErrEmptyAuthorizationHeader is returned when a protected route is hit
	// without an "Authorization" header.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the header is not of
	// the form "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrInvalidJSON is returned for request bodies that don't decode.
	ErrInvalidJSON = errors.New("invalid JSON was passed")

	// ErrUnknownEntity is returned for paths naming an unsupported entity type.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrBodyTooLarge is returned for mutation bodies over the size limit.
	ErrBodyTooLarge = errors.New("request body too large")
)
