// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/connectivity"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/workers"
	"github.com/MKhiriev/go-offline-sync/models"
)

// App owns every engine component and their lifecycles.
type App struct {
	storages  *store.ClientStorages
	sessions  *adapter.SessionManager
	transport *adapter.HTTPTransport
	monitor   *connectivity.Monitor
	prober    *connectivity.Prober
	services  *service.ClientServices
	workers   *workers.Workers

	logger *logger.Logger
}

// NewApp opens the store, restores a persisted session and returns every
// InFlight operation left by a previous process to Queued. Nothing runs in
// the background until Start.
func NewApp(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	storages, err := store.NewClientStorages(ctx, cfg.Storage, log.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	app, err := newApp(ctx, storages, cfg, log)
	if err != nil {
		_ = storages.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, storages *store.ClientStorages, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	sessions := adapter.NewSessionManager(storages.Store, log.WithComponent("session"))
	restored, err := sessions.Restore(ctx)
	if err != nil {
		return nil, err
	}

	transport, err := adapter.NewHTTPTransport(cfg.Adapter, log.WithComponent("transport"))
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	guard := adapter.NewAuthGuard(transport, sessions, log.WithComponent("auth_guard"))

	monitor := connectivity.NewMonitor(cfg.Connectivity.Debounce, log.WithComponent("connectivity"))
	prober := connectivity.NewProber(transport, monitor, cfg.Connectivity, log.WithComponent("prober"))

	services := service.NewClientServices(storages.Store, guard, monitor, sessions, cfg, log)

	reset, err := services.QueueService.ResetInFlight(ctx)
	if err != nil {
		monitor.Close()
		return nil, fmt.Errorf("reset in-flight operations: %w", err)
	}

	log.Info().
		Bool("session_restored", restored).
		Int("in_flight_reset", reset).
		Str("remote", cfg.Adapter.HTTPAddress).
		Msg("sync engine assembled")

	return &App{
		storages:  storages,
		sessions:  sessions,
		transport: transport,
		monitor:   monitor,
		prober:    prober,
		services:  services,
		workers:   workers.NewWorkers(prober, services.SyncService, services.SyncJob),
		logger:    log,
	}, nil
}

// Start launches the prober, the supervisor and the periodic job.
func (a *App) Start(ctx context.Context) {
	a.workers.Start(ctx)
}

// Stop halts the background components and waits for them.
func (a *App) Stop() {
	a.workers.Stop()
}

// Close stops the engine and closes the store.
func (a *App) Close() error {
	a.workers.Stop()
	a.monitor.Close()
	return a.storages.Close()
}

// Run starts the engine, hands control to ui and shuts everything down
// once it returns.
func (a *App) Run(ctx context.Context, ui UI) error {
	a.Start(ctx)
	uiErr := ui.Run(ctx)
	if err := a.Close(); err != nil {
		a.logger.Err(err).Str("func", "App.Run").Msg("error closing store")
	}
	return uiErr
}

// Records is the facade the UI works with.
func (a *App) Records() service.RecordsService {
	return a.services.RecordsService
}

func (a *App) Services() *service.ClientServices {
	return a.services
}

// Login exchanges credentials for a session. Installing it wakes a paused
// supervisor.
func (a *App) Login(ctx context.Context, login, password string) error {
	creds, err := a.transport.Login(ctx, models.LoginRequest{Login: login, Password: password})
	if err != nil {
		return err
	}
	if _, err = a.sessions.Set(ctx, creds); err != nil {
		return err
	}
	a.logger.Info().Str("func", "App.Login").Str("login", login).Msg("logged in")
	return nil
}

// Logout drops the session. Queued operations stay and are replayed after
// the next login.
func (a *App) Logout(ctx context.Context) {
	a.sessions.Clear(ctx)
}

func (a *App) SessionActive() bool {
	return a.sessions.Active()
}

// SyncOnce probes the remote once and runs a single pass on the calling
// goroutine. Offline and paused engines are not an error here: there is
// simply nothing to do until the next wake.
func (a *App) SyncOnce(ctx context.Context) (models.SyncReport, error) {
	a.monitor.Prime(a.prober.Probe(ctx))

	report, err := a.services.SyncService.RunPass(ctx)
	switch {
	case errors.Is(err, service.ErrOffline), errors.Is(err, service.ErrPaused):
		a.logger.Info().Err(err).Str("func", "App.SyncOnce").Msg("nothing to do")
		return report, nil
	case err != nil:
		return report, err
	}
	return report, nil
}
