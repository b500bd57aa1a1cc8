// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package connectivity turns raw reachability signals into a debounced
// stream of Online/Offline transitions.
package connectivity

import (
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// DefaultDebounce is the window an Online signal must hold before it is
// delivered.
const DefaultDebounce = 1500 * time.Millisecond

// Monitor tracks connectivity. Offline is applied and delivered at once;
// Online is delivered only after it has held for the debounce window, so
// online/offline/online flapping produces at most one Online notification.
//
// State reports the delivered state: a pending Online still reads Offline.
type Monitor struct {
	debounce time.Duration
	logger   *logger.Logger

	mu          sync.Mutex
	observed    models.ConnectivityState
	delivered   models.ConnectivityState
	seq         uint64
	timer       *time.Timer
	subscribers map[int]func(models.ConnectivityState)
	nextID      int
	closed      bool
}

func NewMonitor(debounce time.Duration, log *logger.Logger) *Monitor {
	if debounce < 0 {
		debounce = 0
	}
	return &Monitor{
		debounce:    debounce,
		logger:      log,
		subscribers: make(map[int]func(models.ConnectivityState)),
	}
}

// State returns the last delivered state.
func (m *Monitor) State() models.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered
}

// Online is a shorthand for State() == Online.
func (m *Monitor) Online() bool {
	return m.State() == models.Online
}

// Prime sets the initial state without notifying anyone. It is used once at
// startup with the result of a synchronous probe.
func (m *Monitor) Prime(state models.ConnectivityState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.stopTimerLocked()
	m.observed = state
	m.delivered = state
}

// Subscribe registers fn for transitions. Every fn runs on its own goroutine.
func (m *Monitor) Subscribe(fn func(models.ConnectivityState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Observe feeds a platform signal.
func (m *Monitor) Observe(state models.ConnectivityState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || state == m.observed {
		return
	}
	m.observed = state
	m.seq++

	if state == models.Offline {
		m.stopTimerLocked()
		if m.delivered == models.Online {
			m.delivered = models.Offline
			m.logger.Info().Str("func", "Monitor.Observe").Msg("connectivity lost")
			m.dispatchLocked(models.Offline)
		}
		return
	}

	if m.delivered == models.Online {
		return
	}
	seq := m.seq
	m.stopTimerLocked()
	m.timer = time.AfterFunc(m.debounce, func() { m.settle(seq) })
}

func (m *Monitor) settle(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// a newer signal arrived while waiting
	if m.closed || seq != m.seq || m.observed != models.Online || m.delivered == models.Online {
		return
	}
	m.timer = nil
	m.delivered = models.Online
	m.logger.Info().Str("func", "Monitor.settle").Msg("connectivity restored")
	m.dispatchLocked(models.Online)
}

func (m *Monitor) dispatchLocked(state models.ConnectivityState) {
	for _, fn := range m.subscribers {
		go fn(state)
	}
}

func (m *Monitor) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Close stops a pending Online delivery. Later signals are ignored.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimerLocked()
}
