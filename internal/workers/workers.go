// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
)

// Workers starts its workers in order and stops them in reverse order, so
// a worker can rely on the ones started before it.
type Workers struct {
	workers []Worker

	mu      sync.Mutex
	running bool
}

func NewWorkers(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Start is a no-op while the workers are already running.
func (w *Workers) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	for _, worker := range w.workers {
		worker.Start(ctx)
	}
	w.running = true
}

func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
	w.running = false
}
