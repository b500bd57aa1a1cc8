// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

// Services bundles the development remote API services.
type Services struct {
	AuthService    AuthService
	RecordsService RemoteRecordsService
	AppInfoService AppInfoService
}

func NewServices(st store.Store, cfg *config.DevServerConfig, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.Version, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		AuthService:    NewAuthService(*cfg, logger),
		RecordsService: NewRemoteRecordsValidationService().Wrap(NewRemoteRecordsService(st, logger)),
		AppInfoService: appInfo,
	}, nil
}
