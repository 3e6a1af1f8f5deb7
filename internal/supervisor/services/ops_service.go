// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/towerdb"
)

// OpsService serves the operational HTTP surface: health, Prometheus
// metrics, and reference-database stats. It is not an application API.
type OpsService struct {
	addr    string
	timeout time.Duration
	store   towerdb.Store
	name    string
}

// NewOpsService creates the operational HTTP listener service.
func NewOpsService(addr string, timeout time.Duration, store towerdb.Store) *OpsService {
	return &OpsService{
		addr:    addr,
		timeout: timeout,
		store:   store,
		name:    "ops-http",
	}
}

// Serve implements suture.Service. The listener shuts down gracefully
// when the context is canceled.
func (s *OpsService) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/statusz", s.handleStatus)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: s.timeout,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info().Str("component", "ops").Str("addr", s.addr).Msg("ops listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops listener shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleStatus reports reference-database aggregates.
func (s *OpsService) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logging.Warn().Err(err).Str("component", "ops").Msg("status encode failed")
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *OpsService) String() string {
	return s.name
}
