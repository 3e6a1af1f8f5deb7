// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package metrics exposes Prometheus instrumentation for the analysis
// core: import volume, spatial query latency, and alert production.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reference data import.
	TowersImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cellsentry_towers_imported_total",
			Help: "Total reference tower records accepted during bulk imports",
		},
	)

	ImportRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cellsentry_import_rows_skipped_total",
			Help: "Reference data rows skipped during import",
		},
		[]string{"reason"}, // "parse", "technology", "coordinates", "duplicate"
	)

	// Spatial store.
	SpatialQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellsentry_spatial_query_duration_seconds",
			Help:    "Duration of nearby-tower queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SpatialQueryResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellsentry_spatial_query_results",
			Help:    "Number of towers returned per nearby query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// Threat analysis.
	ObservationsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cellsentry_observations_analyzed_total",
			Help: "Total tower observations run through the scoring engine",
		},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cellsentry_alerts_generated_total",
			Help: "Total alerts emitted by the scoring engine",
		},
		[]string{"type", "severity"},
	)

	RiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellsentry_risk_score",
			Help:    "Distribution of per-observation risk scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)
