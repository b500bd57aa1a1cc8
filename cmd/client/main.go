// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command client runs the offline sync engine behind the terminal status
// monitor, or with -background performs a single sync pass and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-offline-sync/internal/client"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/tui"
	"github.com/MKhiriev/go-offline-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewBuildInfo(buildVersion, buildDate, buildCommit)

	cfg, err := config.GetClientConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting configs: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewClientLogger("go-offline-sync-client", cfg.App.LogPath).WithLevel(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error setting log level: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("version", buildInfo.Version).Str("commit", buildInfo.Commit).Bool("background", cfg.App.Background).Msg("client starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if cfg.App.Background {
		if _, err = client.RunBackgroundSync(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("background sync failed")
			stop()
			os.Exit(1)
		}
		return
	}

	app, err := client.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(ctx, tui.New(app, buildInfo, log)); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}
