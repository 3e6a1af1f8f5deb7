// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package detection implements the threat scoring engine: each tower
// observation is resolved against the reference database, scored with an
// additive multi-factor heuristic, and turned into typed alerts.
//
// One Engine instance serves one scan session. Observations must be
// analyzed in capture order because identity-churn detection depends on
// the temporal ordering of session memory updates; concurrent Analyze
// calls on the same instance require external serialization.
package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rfwatch/cellsentry/internal/fingerprint"
	"github.com/rfwatch/cellsentry/internal/geometry"
	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/metrics"
	"github.com/rfwatch/cellsentry/internal/models"
	"github.com/rfwatch/cellsentry/internal/region"
)

// Engine scores tower observations and accumulates alerts. Construct one
// per scan session with NewEngine; do not share across concurrent scans.
type Engine struct {
	cfg          Config
	towers       TowerDirectory
	fingerprints *fingerprint.Engine
	regions      *region.Catalog

	mu        sync.Mutex
	alerts    []Alert
	seen      map[sessionKey]sessionRecord
	silentSMS int

	engineMetrics EngineMetrics
}

// EngineMetrics is a snapshot of per-engine counters, distinct from the
// process-wide Prometheus metrics.
type EngineMetrics struct {
	ObservationsAnalyzed int64
	AlertsGenerated      int64
	LastAnalyzedAt       time.Time
}

// NewEngine creates a threat scoring engine for one scan session.
func NewEngine(towers TowerDirectory, regions *region.Catalog, cfg Config) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:          cfg,
		towers:       towers,
		fingerprints: fingerprint.NewEngine(),
		regions:      regions,
		seen:         make(map[sessionKey]sessionRecord),
	}
}

// Analyze scores one observation and returns the alerts it triggered.
// The alerts are also appended to the engine's running list. Analysis
// never fails on a malformed observation: factors whose inputs are
// missing are skipped and the remaining factors still produce a score.
func (e *Engine) Analyze(ctx context.Context, obs *models.ObservedTower, observer *models.Position) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.ObservationsAnalyzed.Inc()
	e.engineMetrics.ObservationsAnalyzed++
	e.engineMetrics.LastAnalyzedAt = time.Now()

	match := e.resolve(ctx, obs)
	score, evidence := e.score(ctx, obs, observer, match)
	obs.RiskScore = score
	metrics.RiskScore.Observe(float64(score))

	var out []Alert

	switch {
	case score >= e.cfg.CriticalThreshold:
		out = append(out, e.newAlert(AlertStingray, SeverityCritical, score, evidence, obs, match, observer,
			fmt.Sprintf("Observation scored %d/100 across %d threat factors", score, len(evidence))))
	case score >= e.cfg.WarningThreshold:
		out = append(out, e.newAlert(AlertStingray, SeverityHigh, score, evidence, obs, match, observer,
			fmt.Sprintf("Observation scored %d/100 across %d threat factors", score, len(evidence))))
	}

	if cipher := normalizeCipher(obs.Encryption); weakCiphers[cipher] {
		severity := SeverityHigh
		if nullCiphers[cipher] {
			severity = SeverityCritical
		}
		out = append(out, e.newAlert(AlertEncryptionDowngrade, severity, score, evidence, obs, match, observer,
			fmt.Sprintf("Cell reports cipher %q", obs.Encryption)))
	}

	if match == nil {
		out = append(out, e.newAlert(AlertUnknownTower, SeverityMedium, score, evidence, obs, match, observer,
			e.describeUnknown(obs)))
	} else if observer != nil {
		distKm := geometry.HaversineKm(observer.Latitude, observer.Longitude, match.Latitude, match.Longitude)
		if distKm > e.cfg.MismatchKm {
			ev := copyEvidence(evidence)
			ev["measured_distance_km"] = round2(distKm)
			out = append(out, e.newAlert(AlertLocationMismatch, SeverityHigh, score, ev, obs, match, observer,
				fmt.Sprintf("Database places this cell %.1f km from the observer", distKm)))
		}
	}

	e.alerts = append(e.alerts, out...)
	for i := range out {
		metrics.AlertsGenerated.WithLabelValues(string(out[i].Type), string(out[i].Severity)).Inc()
	}
	e.engineMetrics.AlertsGenerated += int64(len(out))

	if len(out) > 0 {
		logging.Debug().
			Str("component", "detection").
			Int("score", score).
			Int("alerts", len(out)).
			Int("earfcn", obs.EARFCN).
			Int("pci", obs.PCI).
			Msg("observation flagged")
	}

	return out
}

// Score computes the 0-100 risk score and the evidence map for one
// observation without emitting alerts. Exposed for callers that want the
// raw heuristic; Analyze uses the same computation internally.
func (e *Engine) Score(ctx context.Context, obs *models.ObservedTower, observer *models.Position) (int, map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score(ctx, obs, observer, e.resolve(ctx, obs))
}

// resolve looks the observation up in the reference database. An
// observation without a decoded identity cannot be resolved; a lookup
// miss is a nil match, never an error.
func (e *Engine) resolve(ctx context.Context, obs *models.ObservedTower) *models.CellTower {
	if obs.Identity == nil {
		return nil
	}
	match, err := e.towers.ByIdentity(ctx, *obs.Identity)
	if err != nil {
		logging.Warn().Err(err).Str("identity", obs.Identity.Key()).Msg("reference lookup failed")
		return nil
	}
	return match
}

// newAlert builds an alert with snapshots of the triggering observation,
// its database match, and the observer position.
func (e *Engine) newAlert(kind AlertType, severity Severity, score int, evidence map[string]any,
	obs *models.ObservedTower, match *models.CellTower, observer *models.Position, description string,
) Alert {
	tower := map[string]any{
		"technology": string(obs.Technology),
		"earfcn":     obs.EARFCN,
		"pci":        obs.PCI,
	}
	if obs.Identity != nil {
		tower["identity"] = obs.Identity.Key()
		if ctx := e.regions.Resolve(obs.Identity.MCC); ctx.Known {
			tower["country"] = ctx.Country.Name
		}
	}
	if obs.RSRP != nil {
		tower["rsrp"] = *obs.RSRP
	}
	if obs.Encryption != "" {
		tower["encryption"] = obs.Encryption
	}
	if fp := e.fingerprintFor(obs); fp != nil {
		tower["fingerprint"] = e.fingerprints.Hash(fp)
	}
	if match != nil {
		tower["db_latitude"] = match.Latitude
		tower["db_longitude"] = match.Longitude
	}

	var client map[string]any
	if observer != nil {
		client = map[string]any{
			"lat": observer.Latitude,
			"lon": observer.Longitude,
		}
	}

	return Alert{
		ID:          uuid.New(),
		Type:        kind,
		Severity:    severity,
		Title:       alertTitles[kind],
		Description: description,
		Score:       score,
		TowerData:   tower,
		ClientData:  client,
		Evidence:    evidence,
		Timestamp:   time.Now().UTC(),
	}
}

// describeUnknown builds the UNKNOWN_TOWER description, annotated with
// the region the cell claims to be from when its MCC is known.
func (e *Engine) describeUnknown(obs *models.ObservedTower) string {
	if obs.Identity == nil {
		return fmt.Sprintf("Cell EARFCN %d / PCI %d broadcasts no decodable identity", obs.EARFCN, obs.PCI)
	}
	if ctx := e.regions.Resolve(obs.Identity.MCC); ctx.Known {
		return fmt.Sprintf("Cell %s (%s) is not in the reference database", obs.Identity.Key(), ctx.Country.Name)
	}
	return fmt.Sprintf("Cell %s has an unknown country code and is not in the reference database", obs.Identity.Key())
}

// fingerprintFor builds the observation's RF fingerprint.
func (e *Engine) fingerprintFor(obs *models.ObservedTower) *fingerprint.RFFingerprint {
	if obs == nil {
		return nil
	}
	return e.fingerprints.Create(fingerprint.Observation{
		PCI:          obs.PCI,
		EARFCN:       obs.EARFCN,
		BandwidthMHz: obs.BandwidthMHz,
		CyclicPrefix: obs.CyclicPrefix,
		AntennaPorts: obs.AntennaPorts,
		DuplexMode:   obs.DuplexMode,
		MIB:          obs.MIB,
		SIB1:         obs.SIB1,
		RSRPSamples:  obs.RSRPSamples,
	})
}

// Alerts returns a copy of the accumulated alerts passing the filter.
func (e *Engine) Alerts(filter AlertFilter) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, 0, len(e.alerts))
	for i := range e.alerts {
		if filter.matches(&e.alerts[i]) {
			out = append(out, e.alerts[i])
		}
	}
	return out
}

// ClearAlerts drops the accumulated alert list.
func (e *Engine) ClearAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = nil
}

// ResetSession clears the session memory and silent-SMS counter. Session
// memory is never expired implicitly: identity-churn detection needs the
// full session history, so only an explicit reset (a new scan session)
// clears it.
func (e *Engine) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = make(map[sessionKey]sessionRecord)
	e.silentSMS = 0
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() EngineMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engineMetrics
}

// copyEvidence shallow-copies an evidence map so per-alert additions do
// not leak into the shared score evidence.
func copyEvidence(ev map[string]any) map[string]any {
	out := make(map[string]any, len(ev)+1)
	for k, v := range ev {
		out[k] = v
	}
	return out
}

// round2 rounds to two decimals for evidence payloads.
func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
