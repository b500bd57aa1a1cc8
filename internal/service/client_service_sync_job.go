// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

type clientSyncJob struct {
	syncService  SyncService
	queueService QueueService
	interval     time.Duration
	pruneAfter   time.Duration
	logger       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a job that wakes the supervisor every
// cfg.SyncInterval and prunes Synced rows older than cfg.PruneAfter. The job
// is idle until Start is called.
func NewClientSyncJob(syncService SyncService, queueService QueueService, cfg config.ClientWorkers, log *logger.Logger) SyncJob {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = config.DefaultSyncInterval
	}
	pruneAfter := cfg.PruneAfter
	if pruneAfter <= 0 {
		pruneAfter = config.DefaultPruneAfter
	}
	return &clientSyncJob{
		syncService:  syncService,
		queueService: queueService,
		interval:     interval,
		pruneAfter:   pruneAfter,
		logger:       log,
	}
}

// Start implements SyncJob. It stops any previously running job, then
// launches a goroutine that ticks every interval. The goroutine exits when
// ctx is cancelled or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(j.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *clientSyncJob) tick(ctx context.Context) {
	j.syncService.Trigger("periodic wake")

	n, err := j.queueService.PruneSynced(ctx, j.pruneAfter)
	if err != nil {
		j.logger.Err(err).Str("func", "clientSyncJob.tick").Msg("failed to prune synced operations")
		return
	}
	if n > 0 {
		j.logger.Debug().Str("func", "clientSyncJob.tick").Int("pruned", n).Msg("synced operations pruned")
	}
}

// Stop implements SyncJob. Safe to call when the job is not running.
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
