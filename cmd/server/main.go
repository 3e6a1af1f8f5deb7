// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Command server runs the CellSentry analysis core: it loads the tower
// reference database, analyzes the scan collaborator's observation
// stream from stdin, and emits alerts as JSON lines on stdout. An
// operational HTTP listener exposes health, metrics, and database stats.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/rfwatch/cellsentry/internal/config"
	"github.com/rfwatch/cellsentry/internal/detection"
	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/region"
	"github.com/rfwatch/cellsentry/internal/supervisor"
	"github.com/rfwatch/cellsentry/internal/supervisor/services"
	"github.com/rfwatch/cellsentry/internal/towerdb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr, // stdout carries the alert stream
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("csv_path", cfg.Import.CSVPath).
		Msg("Starting CellSentry")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := badger.DefaultOptions(cfg.Database.Path)
	opts.Logger = nil // Suppress BadgerDB logs
	db, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Database close error")
		}
	}()

	store, err := towerdb.NewBadgerStore(db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open tower store")
	}

	if cfg.Import.CSVPath != "" {
		count, err := towerdb.ImportCSV(ctx, store, cfg.Import.CSVPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Import.CSVPath).Msg("Reference import failed")
		}
		logging.Info().Int("towers", count).Msg("Reference database imported")
	}

	engine := detection.NewEngine(store, region.NewCatalog(), detection.Config{
		CriticalThreshold:      cfg.Detection.CriticalThreshold,
		WarningThreshold:       cfg.Detection.WarningThreshold,
		RSRPStrongDBm:          cfg.Detection.RSRPStrongDBm,
		MismatchKm:             cfg.Detection.MismatchKm,
		FarMismatchKm:          cfg.Detection.FarMismatchKm,
		SNRAnomalyDB:           cfg.Detection.SNRAnomalyDB,
		SilentSMSTrackingCount: cfg.Detection.SilentSMSTrackingCount,
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAnalysisService(services.NewAnalysisService(engine, os.Stdin, os.Stdout))
	tree.AddOpsService(services.NewOpsService(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		cfg.Server.Timeout,
		store,
	))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	}

	logging.Info().Msg("CellSentry stopped")
}
