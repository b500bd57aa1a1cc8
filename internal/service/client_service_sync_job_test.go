// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// spySyncService считает вызовы Trigger и отдаёт заранее заданные redirects.
type spySyncService struct {
	triggers  atomic.Int64
	redirects map[string]string
}

func (s *spySyncService) Start(context.Context) {}
func (s *spySyncService) Stop()                 {}
func (s *spySyncService) Trigger(string)        { s.triggers.Add(1) }
func (s *spySyncService) RunPass(context.Context) (models.SyncReport, error) {
	return models.SyncReport{}, nil
}
func (s *spySyncService) Resolve(_ models.EntityType, id string) string {
	if canonical, ok := s.redirects[id]; ok {
		return canonical
	}
	return id
}
func (s *spySyncService) Status() models.SyncStatus                    { return models.SyncStatus{} }
func (s *spySyncService) SubscribeToStatus(func(models.SyncStatus)) func() {
	return func() {}
}

func newTestJob(t *testing.T, interval time.Duration) (*clientSyncJob, *spySyncService, *clientQueueService, *fakeClock) {
	t.Helper()
	spy := &spySyncService{}
	queue, _, clock := newTestQueue(t)
	job := NewClientSyncJob(spy, queue, config.ClientWorkers{SyncInterval: interval, PruneAfter: time.Hour}, logger.Nop()).(*clientSyncJob)
	return job, spy, queue, clock
}

// ── NewClientSyncJob ─────────────────────────────────────────────────────────

func TestNewClientSyncJob_Defaults(t *testing.T) {
	job := NewClientSyncJob(&spySyncService{}, nil, config.ClientWorkers{}, logger.Nop()).(*clientSyncJob)
	assert.Equal(t, config.DefaultSyncInterval, job.interval)
	assert.Equal(t, config.DefaultPruneAfter, job.pruneAfter)
}

// ── Start / Stop ─────────────────────────────────────────────────────────────

func TestClientSyncJob_Start_TriggersPeriodically(t *testing.T) {
	job, spy, _, _ := newTestJob(t, 10*time.Millisecond)

	job.Start(context.Background())
	require.Eventually(t, func() bool { return spy.triggers.Load() >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()
}

func TestClientSyncJob_Stop_StopsGoroutine(t *testing.T) {
	job, spy, _, _ := newTestJob(t, 10*time.Millisecond)

	job.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.triggers.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, callsAfterStop, spy.triggers.Load(), "после Stop новых вызовов быть не должно")
}

func TestClientSyncJob_Stop_BeforeStart_NoPanic(t *testing.T) {
	job, _, _, _ := newTestJob(t, time.Minute)
	assert.NotPanics(t, func() { job.Stop() })
}

func TestClientSyncJob_DoubleStop_NoPanic(t *testing.T) {
	job, _, _, _ := newTestJob(t, 10*time.Millisecond)

	job.Start(context.Background())
	job.Stop()
	assert.NotPanics(t, func() { job.Stop() })
}

func TestClientSyncJob_Restart_KeepsTicking(t *testing.T) {
	job, spy, _, _ := newTestJob(t, 10*time.Millisecond)
	ctx := context.Background()

	job.Start(ctx)
	require.Eventually(t, func() bool { return spy.triggers.Load() > 0 }, time.Second, 5*time.Millisecond)
	before := spy.triggers.Load()

	// повторный Start останавливает предыдущую горутину
	job.Start(ctx)
	require.Eventually(t, func() bool { return spy.triggers.Load() > before }, time.Second, 5*time.Millisecond)
	job.Stop()
}

func TestClientSyncJob_ContextCancel_StopsJob(t *testing.T) {
	job, _, _, _ := newTestJob(t, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop завис после отмены контекста")
	}
}

// ── tick ─────────────────────────────────────────────────────────────────────

func TestClientSyncJob_Tick_PrunesOldSyncedRows(t *testing.T) {
	job, spy, queue, clock := newTestJob(t, time.Minute)
	ctx := context.Background()

	old, err := queue.Enqueue(ctx, models.Update, models.Listings, "srv_1", models.Payload{"a": 1})
	require.NoError(t, err)
	_, err = queue.MarkInFlight(ctx, old)
	require.NoError(t, err)
	_, err = queue.Complete(ctx, old, models.RemoteResult{StatusCode: 200})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	fresh, err := queue.Enqueue(ctx, models.Update, models.Listings, "srv_2", models.Payload{"a": 2})
	require.NoError(t, err)
	_, err = queue.MarkInFlight(ctx, fresh)
	require.NoError(t, err)
	_, err = queue.Complete(ctx, fresh, models.RemoteResult{StatusCode: 200})
	require.NoError(t, err)

	job.tick(ctx)

	assert.Equal(t, int64(1), spy.triggers.Load())
	_, err = queue.Get(ctx, old)
	assert.ErrorIs(t, err, ErrOperationNotFound)
	_, err = queue.Get(ctx, fresh)
	assert.NoError(t, err)
}
