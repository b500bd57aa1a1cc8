// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	ErrInvalidMutation   = errors.New("invalid mutation")
	ErrInvalidTransition = errors.New("invalid operation state transition")
	ErrOperationNotFound = errors.New("operation not found")
	ErrNotDismissable    = errors.New("only synced, dead or cancelled operations can be dismissed")

	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")

	ErrSyncInProgress = errors.New("sync pass already running")
	ErrOffline        = errors.New("device is offline")
	ErrPaused         = errors.New("sync paused until a new auth session exists")
)

// Development server errors.
var (
	ErrInvalidDataProvided     = errors.New("invalid data provided")
	ErrWrongCredentials        = errors.New("wrong login or password")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrRefreshTokenRejected    = errors.New("refresh token is unknown or already used")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrVersionIsNotSpecified   = errors.New("version is not specified")

	ErrRemoteRecordNotFound   = errors.New("remote record not found")
	ErrIdempotencyKeyReused   = errors.New("idempotency key was already used for a different request")
	ErrRemoteValidationFailed = errors.New("remote validation failed")
)
