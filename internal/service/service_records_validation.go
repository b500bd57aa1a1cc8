// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/validators"
	"github.com/MKhiriev/go-offline-sync/models"
)

// RemoteRecordsValidationService rejects mutations that break the business
// rules before they reach the wrapped service.
type RemoteRecordsValidationService struct {
	inner     RemoteRecordsService
	validator validators.Validator
}

func NewRemoteRecordsValidationService() RemoteRecordsServiceWrapper {
	return &RemoteRecordsValidationService{
		validator: validators.NewRecordValidator(),
	}
}

func (v *RemoteRecordsValidationService) Apply(ctx context.Context, m models.RemoteMutation) (models.MutationResult, error) {
	if err := v.validator.Validate(ctx, m); err != nil {
		return models.MutationResult{}, fmt.Errorf("%w: %w", ErrRemoteValidationFailed, err)
	}
	return v.inner.Apply(ctx, m)
}

func (v *RemoteRecordsValidationService) List(ctx context.Context, entityType models.EntityType) ([]models.Payload, error) {
	if err := v.validator.Validate(ctx, models.RemoteMutation{EntityType: entityType}, validators.FieldEntityType); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteValidationFailed, err)
	}
	return v.inner.List(ctx, entityType)
}

func (v *RemoteRecordsValidationService) Wrap(wrapped RemoteRecordsService) RemoteRecordsService {
	v.inner = wrapped
	return v
}
