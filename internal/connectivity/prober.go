// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// HealthChecker reaches the remote API. A nil error means reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober derives the platform signal by probing the remote health endpoint
// on an interval and feeding the results to a [Monitor].
type Prober struct {
	checker  HealthChecker
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProber(checker HealthChecker, monitor *Monitor, cfg config.ClientConnectivity, log *logger.Logger) *Prober {
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = config.DefaultProbeInterval
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = config.DefaultProbeTimeout
	}
	return &Prober{
		checker:  checker,
		monitor:  monitor,
		interval: interval,
		timeout:  timeout,
		logger:   log,
	}
}

// Probe runs one health check.
func (p *Prober) Probe(ctx context.Context) models.ConnectivityState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.checker.Health(ctx); err != nil {
		p.logger.Debug().Err(err).Str("func", "Prober.Probe").Msg("health probe failed")
		return models.Offline
	}
	return models.Online
}

// Start primes the monitor with a synchronous probe and then keeps probing
// until ctx is cancelled or Stop is called.
func (p *Prober) Start(ctx context.Context) {
	p.Stop()

	p.monitor.Prime(p.Probe(ctx))

	p.mu.Lock()
	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-probeCtx.Done():
				return
			case <-t.C:
				state := p.Probe(probeCtx)
				if probeCtx.Err() != nil {
					return
				}
				p.monitor.Observe(state)
			}
		}
	}()
}

// Stop cancels the probe loop and waits for it to exit.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}
