// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"sync"

	"github.com/MKhiriev/go-offline-sync/models"
)

// statusHub holds the latest SyncStatus and fans it out to subscribers.
// Deliveries are serialized so subscribers see snapshots in publish order.
type statusHub struct {
	mu          sync.Mutex
	status      models.SyncStatus
	subscribers map[int]func(models.SyncStatus)
	nextID      int

	deliverMu sync.Mutex
}

func newStatusHub() *statusHub {
	return &statusHub{
		status:      models.SyncStatus{Phase: models.PhaseOffline},
		subscribers: make(map[int]func(models.SyncStatus)),
	}
}

func (h *statusHub) current() models.SyncStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// subscribe registers fn and immediately hands it the current snapshot.
func (h *statusHub) subscribe(fn func(models.SyncStatus)) func() {
	h.deliverMu.Lock()
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	current := h.status
	h.mu.Unlock()
	fn(current)
	h.deliverMu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}
}

// publish stores status and delivers it. update receives the previous
// snapshot and returns the next one.
func (h *statusHub) publish(update func(prev models.SyncStatus) models.SyncStatus) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.Lock()
	h.status = update(h.status)
	status := h.status
	fns := make([]func(models.SyncStatus), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
