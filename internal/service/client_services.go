// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service implements the client-side sync engine: the mutation
// queue manager, the sync supervisor, its periodic wake job and the facade
// the UI talks to.
package service

import (
	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

type ClientServices struct {
	QueueService   QueueService
	SyncService    SyncService
	RecordsService RecordsService
	SyncJob        SyncJob
}

func NewClientServices(st store.Store, remote adapter.RemoteAPI, conn Connectivity, sessions SessionState, cfg *config.ClientConfig, log *logger.Logger) *ClientServices {
	queueSvc := NewClientQueueService(st, log.WithComponent("queue"))
	syncSvc := NewClientSyncService(queueSvc, st, remote, conn, sessions,
		NewSyncOptions(cfg.Sync, cfg.Adapter.RequestTimeout), log.WithComponent("sync"))

	return &ClientServices{
		QueueService:   queueSvc,
		SyncService:    syncSvc,
		RecordsService: NewClientRecordsService(st, queueSvc, syncSvc, log.WithComponent("records")),
		SyncJob:        NewClientSyncJob(syncSvc, queueSvc, cfg.Workers, log.WithComponent("sync_job")),
	}
}
