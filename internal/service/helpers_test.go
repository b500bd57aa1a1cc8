// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/mock"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

// fakeClock: управляемое время для очереди и супервизора.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeConn struct {
	state atomic.Int32
}

func newFakeConn(state models.ConnectivityState) *fakeConn {
	c := &fakeConn{}
	c.set(state)
	return c
}

func (c *fakeConn) set(state models.ConnectivityState) { c.state.Store(int32(state)) }

func (c *fakeConn) State() models.ConnectivityState {
	return models.ConnectivityState(c.state.Load())
}

func (c *fakeConn) Subscribe(func(models.ConnectivityState)) func() { return func() {} }

type fakeSessions struct {
	active atomic.Bool
}

func newFakeSessions(active bool) *fakeSessions {
	s := &fakeSessions{}
	s.active.Store(active)
	return s
}

func (s *fakeSessions) Active() bool                  { return s.active.Load() }
func (s *fakeSessions) Subscribe(func(bool)) func() { return func() {} }

type testEngine struct {
	store    *store.MemoryStore
	queue    *clientQueueService
	sync     *clientSyncService
	remote   *mock.MockRemoteAPI
	conn     *fakeConn
	sessions *fakeSessions
	clock    *fakeClock
}

func testSyncOptions() SyncOptions {
	return SyncOptions{
		Lanes:          3,
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		MaxDelay:       5 * time.Minute,
		RequestTimeout: time.Second,
	}
}

func newTestEngine(t *testing.T, ctrl *gomock.Controller, opts SyncOptions) *testEngine {
	t.Helper()
	st := store.NewMemoryStore()
	clock := newFakeClock()

	queue := NewClientQueueService(st, logger.Nop()).(*clientQueueService)
	queue.now = clock.Now

	remote := mock.NewMockRemoteAPI(ctrl)
	conn := newFakeConn(models.Online)
	sessions := newFakeSessions(true)

	svc := newClientSyncService(queue, st, remote, conn, sessions, opts, logger.Nop())
	svc.now = clock.Now
	svc.jitter = func() float64 { return 0.5 }

	return &testEngine{store: st, queue: queue, sync: svc, remote: remote, conn: conn, sessions: sessions, clock: clock}
}

func newTestQueue(t *testing.T) (*clientQueueService, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := newFakeClock()
	q := NewClientQueueService(st, logger.Nop()).(*clientQueueService)
	q.now = clock.Now
	return q, st, clock
}

func httpError(status int, kind error) error {
	return &adapter.OperationError{Method: http.MethodPost, Path: "/listings", StatusCode: status, Kind: kind}
}
