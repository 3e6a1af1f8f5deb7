// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package detection

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rfwatch/cellsentry/internal/models"
)

// AlertType identifies the kind of threat an alert describes. The set is
// closed: consumers switch over it exhaustively so a new kind cannot be
// silently ignored.
type AlertType string

const (
	AlertStingray            AlertType = "STINGRAY"
	AlertEncryptionDowngrade AlertType = "ENCRYPTION_DOWNGRADE"
	AlertRogueTower          AlertType = "ROGUE_TOWER"
	AlertSilentSMS           AlertType = "SILENT_SMS"
	AlertUnknownTower        AlertType = "UNKNOWN_TOWER"
	AlertLocationMismatch    AlertType = "LOCATION_MISMATCH"
	AlertSignalAnomaly       AlertType = "SIGNAL_ANOMALY"
	AlertTrackingAttempt     AlertType = "TRACKING_ATTEMPT"
)

// alertTitles maps every alert kind to its display title. Keeping the
// map total is what "matched exhaustively" means for consumers: adding a
// kind without a title fails the engine's own tests.
var alertTitles = map[AlertType]string{
	AlertStingray:            "Possible IMSI Catcher",
	AlertEncryptionDowngrade: "Encryption Downgrade",
	AlertRogueTower:          "Rogue Tower",
	AlertSilentSMS:           "Silent SMS Ping",
	AlertUnknownTower:        "Unknown Tower",
	AlertLocationMismatch:    "Tower Location Mismatch",
	AlertSignalAnomaly:       "Signal Anomaly",
	AlertTrackingAttempt:     "Tracking Attempt",
}

// Severity indicates the severity level of an alert.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is one typed detection result. Alerts are immutable once created
// and accumulate on the engine until explicitly cleared.
type Alert struct {
	ID          uuid.UUID      `json:"id"`
	Type        AlertType      `json:"alert_type"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Score       int            `json:"score"`
	TowerData   map[string]any `json:"tower_data,omitempty"`
	ClientData  map[string]any `json:"client_data,omitempty"`
	Evidence    map[string]any `json:"evidence"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ToMap serializes the alert into the shape exported to collaborators,
// with the timestamp as an ISO-8601 string.
func (a *Alert) ToMap() map[string]any {
	return map[string]any{
		"alert_type":  string(a.Type),
		"severity":    string(a.Severity),
		"title":       a.Title,
		"description": a.Description,
		"score":       a.Score,
		"tower_data":  a.TowerData,
		"client_data": a.ClientData,
		"evidence":    a.Evidence,
		"timestamp":   a.Timestamp.UTC().Format(time.RFC3339),
	}
}

// AlertFilter selects alerts by severity and/or type. Nil fields match
// everything.
type AlertFilter struct {
	Severity *Severity
	Type     *AlertType
}

// matches reports whether an alert passes the filter.
func (f AlertFilter) matches(a *Alert) bool {
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	return true
}

// TowerDirectory is the reference database view the engine needs.
// Satisfied by towerdb.Store; defined here so the engine can be tested
// against a local fake without the storage dependency.
type TowerDirectory interface {
	Nearby(ctx context.Context, lat, lon, radiusKm float64, tech models.Technology, limit int) ([]models.TowerWithDistance, error)
	ByIdentity(ctx context.Context, id models.NetworkIdentity) (*models.CellTower, error)
}

// Config holds the scoring thresholds. The factor weights themselves are
// fixed constants (see score.go): other components compare scores against
// these thresholds, so the weights are part of the engine's contract.
type Config struct {
	// CriticalThreshold is the risk score at which a CRITICAL stingray
	// alert is emitted.
	CriticalThreshold int `json:"critical_threshold"`

	// WarningThreshold is the risk score at which a HIGH stingray alert
	// is emitted.
	WarningThreshold int `json:"warning_threshold"`

	// RSRPStrongDBm is the "too strong to be a distant macro cell"
	// signal threshold.
	RSRPStrongDBm float64 `json:"rsrp_strong_dbm"`

	// MismatchKm and FarMismatchKm are the location-mismatch distance
	// thresholds against the reference database.
	MismatchKm    float64 `json:"mismatch_km"`
	FarMismatchKm float64 `json:"far_mismatch_km"`

	// SNRAnomalyDB flags implausibly clean signals.
	SNRAnomalyDB float64 `json:"snr_anomaly_db"`

	// SilentSMSTrackingCount is the number of silent SMS in one session
	// after which a TRACKING_ATTEMPT alert is raised.
	SilentSMSTrackingCount int `json:"silent_sms_tracking_count"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		CriticalThreshold:      70,
		WarningThreshold:       40,
		RSRPStrongDBm:          -65,
		MismatchKm:             5,
		FarMismatchKm:          10,
		SNRAnomalyDB:           30,
		SilentSMSTrackingCount: 3,
	}
}

// weakCiphers enumerates ciphers treated as broken or absent. A5/1 and
// A5/2 are long broken; A5/0 and the bare "none" mean no encryption at
// all.
var weakCiphers = map[string]bool{
	"A5/0": true,
	"A5/1": true,
	"A5/2": true,
	"NONE": true,
	"NULL": true,
}

// nullCiphers is the subset of weakCiphers meaning no encryption.
var nullCiphers = map[string]bool{
	"A5/0": true,
	"NONE": true,
	"NULL": true,
}

// normalizeCipher canonicalizes a reported encryption scheme for lookup.
func normalizeCipher(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// sessionKey keys the engine's session memory. PCI values are reused
// across distant cells, so the frequency channel is part of the key.
type sessionKey struct {
	EARFCN int
	PCI    int
}

// sessionRecord is the per-key session memory: the identity a cell last
// broadcast on this channel, plus its fingerprint hash for continuity
// checks.
type sessionRecord struct {
	Identity        models.NetworkIdentity
	FingerprintHash string
	LastSeen        time.Time
}
