// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui is the terminal status monitor of the sync engine. It shows
// connectivity, the supervisor phase and the queue, and lets the user sync
// now, retry or dismiss Dead operations and cancel queued ones.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Engine is what the monitor needs from the running client.
type Engine interface {
	Records() service.RecordsService
	Login(ctx context.Context, login, password string) error
	Logout(ctx context.Context)
	SessionActive() bool
}

type TUI struct {
	engine    Engine
	buildInfo models.BuildInfo
	logger    *logger.Logger
}

func New(engine Engine, buildInfo models.BuildInfo, logger *logger.Logger) *TUI {
	return &TUI{engine: engine, buildInfo: buildInfo, logger: logger}
}

// Run blocks until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	feed := newStatusFeed()
	unsubscribe := t.engine.Records().SubscribeToSyncStatus(feed.push)
	defer unsubscribe()

	m := newModel(ctx, t.engine, feed, t.buildInfo)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		t.logger.Err(err).Str("func", "TUI.Run").Msg("tui stopped with error")
	}
	return err
}

// statusFeed hands status snapshots from the engine to the program. Only
// the newest snapshot is kept so a slow UI never blocks a sync pass.
type statusFeed struct {
	ch chan models.SyncStatus
}

func newStatusFeed() *statusFeed {
	return &statusFeed{ch: make(chan models.SyncStatus, 1)}
}

func (f *statusFeed) push(s models.SyncStatus) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *statusFeed) wait() tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-f.ch)
	}
}
