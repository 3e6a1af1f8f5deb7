// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package detection

import (
	"context"
	"testing"

	"github.com/rfwatch/cellsentry/internal/models"
	"github.com/rfwatch/cellsentry/internal/region"
)

// mockDirectory is a TowerDirectory backed by a map.
type mockDirectory struct {
	towers map[string]*models.CellTower
}

func (m *mockDirectory) Nearby(ctx context.Context, lat, lon, radiusKm float64, tech models.Technology, limit int) ([]models.TowerWithDistance, error) {
	return nil, nil
}

func (m *mockDirectory) ByIdentity(ctx context.Context, id models.NetworkIdentity) (*models.CellTower, error) {
	if t, ok := m.towers[id.Key()]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func newTestEngine(t *testing.T, towers ...*models.CellTower) *Engine {
	t.Helper()
	dir := &mockDirectory{towers: make(map[string]*models.CellTower)}
	for _, tower := range towers {
		dir.towers[tower.Identity.Key()] = tower
	}
	return NewEngine(dir, region.NewCatalog(), DefaultConfig())
}

func floatPtr(f float64) *float64 { return &f }

func identity(mcc, mnc, area int, cell int64) *models.NetworkIdentity {
	return &models.NetworkIdentity{MCC: mcc, MNC: mnc, Area: area, Cell: cell}
}

func TestAnalyzeStingrayScenario(t *testing.T) {
	// Strong signal, null cipher, not in the database: the classic
	// IMSI-catcher presentation.
	engine := newTestEngine(t)
	obs := &models.ObservedTower{
		Technology: models.TechLTE,
		EARFCN:     1850,
		PCI:        42,
		Identity:   identity(310, 410, 1234, 567890),
		RSRP:       floatPtr(-55),
		Encryption: "A5/0",
	}

	alerts := engine.Analyze(context.Background(), obs, nil)

	if obs.RiskScore != 70 {
		t.Fatalf("risk score = %d, want 70", obs.RiskScore)
	}

	byType := make(map[AlertType]Alert)
	for _, a := range alerts {
		byType[a.Type] = a
	}

	stingray, ok := byType[AlertStingray]
	if !ok {
		t.Fatal("expected STINGRAY alert")
	}
	if stingray.Severity != SeverityCritical {
		t.Errorf("stingray severity = %s, want CRITICAL", stingray.Severity)
	}

	enc, ok := byType[AlertEncryptionDowngrade]
	if !ok {
		t.Fatal("expected ENCRYPTION_DOWNGRADE alert")
	}
	if enc.Severity != SeverityCritical {
		t.Errorf("encryption severity = %s, want CRITICAL (null cipher)", enc.Severity)
	}

	unknown, ok := byType[AlertUnknownTower]
	if !ok {
		t.Fatal("expected UNKNOWN_TOWER alert")
	}
	if unknown.Severity != SeverityMedium {
		t.Errorf("unknown tower severity = %s, want MEDIUM", unknown.Severity)
	}
}

func TestAnalyzeKnownCleanTower(t *testing.T) {
	known := &models.CellTower{
		Technology: models.TechLTE,
		Identity:   models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1234, Cell: 567890},
		Latitude:   37.7749,
		Longitude:  -122.4194,
	}
	engine := newTestEngine(t, known)

	obs := &models.ObservedTower{
		Technology: models.TechLTE,
		EARFCN:     1850,
		PCI:        42,
		Identity:   identity(310, 410, 1234, 567890),
		RSRP:       floatPtr(-95),
		Encryption: "A5/3",
	}
	observer := &models.Position{Latitude: 37.7750, Longitude: -122.4190}

	alerts := engine.Analyze(context.Background(), obs, observer)
	if len(alerts) != 0 {
		t.Fatalf("clean observation produced %d alerts: %+v", len(alerts), alerts)
	}
	if obs.RiskScore != 0 {
		t.Errorf("risk score = %d, want 0", obs.RiskScore)
	}
}

func TestScoreFactors(t *testing.T) {
	tests := []struct {
		name string
		obs  models.ObservedTower
		want int
	}{
		{
			name: "strong signal only",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, RSRP: floatPtr(-60)},
			want: 25,
		},
		{
			name: "elevated signal only",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, RSRP: floatPtr(-70)},
			want: 10,
		},
		{
			name: "normal signal",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, RSRP: floatPtr(-100)},
			want: 0,
		},
		{
			name: "weak cipher only",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, Encryption: "A5/1"},
			want: 25,
		},
		{
			name: "missing cipher with system info",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, MIB: []byte{0x01}},
			want: 10,
		},
		{
			name: "missing cipher without system info",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1},
			want: 0,
		},
		{
			name: "unknown identity",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, Identity: identity(310, 410, 1, 1)},
			want: 20,
		},
		{
			name: "implausible snr",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1, SNR: floatPtr(35)},
			want: 5,
		},
		{
			name: "no measurements at all",
			obs:  models.ObservedTower{EARFCN: 100, PCI: 1},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t)
			got, _ := engine.Score(context.Background(), &tt.obs, nil)
			if got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreFactorStacking(t *testing.T) {
	known := &models.CellTower{
		Technology: models.TechLTE,
		Identity:   models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1, Cell: 1},
		Latitude:   38.5,
		Longitude:  -122.4,
	}
	engine := newTestEngine(t, known)
	observer := &models.Position{Latitude: 37.77, Longitude: -122.42}

	// Prime session memory so the next observation on the channel churns.
	first := &models.ObservedTower{
		EARFCN: 100, PCI: 1,
		Identity: identity(310, 260, 9, 9),
	}
	engine.Analyze(context.Background(), first, nil)

	// Unknown identity stacks every reachable factor.
	obs := &models.ObservedTower{
		EARFCN: 100, PCI: 1,
		Identity:   identity(310, 410, 2, 2), // churned, not in db
		RSRP:       floatPtr(-50),
		SNR:        floatPtr(40),
		Encryption: "none",
	}
	score, evidence := engine.Score(context.Background(), obs, observer)

	// 25 (signal) + 25 (cipher) + 20 (db) + 10 (churn) + 5 (snr) = 85.
	if score != 85 {
		t.Fatalf("score = %d, want 85 (evidence: %v)", score, evidence)
	}

	// Against a far-away known record the location factor replaces the
	// database factor.
	obsKnown := &models.ObservedTower{
		EARFCN: 100, PCI: 1,
		Identity:   identity(310, 410, 1, 1), // in db, ~85km away, churned again
		RSRP:       floatPtr(-50),
		SNR:        floatPtr(40),
		Encryption: "none",
	}
	score, _ = engine.Score(context.Background(), obsKnown, observer)
	// 25 + 25 + 15 (far mismatch) + 10 (churn) + 5 = 80
	if score > 100 {
		t.Fatalf("score %d exceeds cap", score)
	}
	if score != 80 {
		t.Fatalf("score = %d, want 80", score)
	}
}

func TestIdentityChurn(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	a := &models.ObservedTower{EARFCN: 500, PCI: 7, Identity: identity(262, 1, 10, 100)}
	b := &models.ObservedTower{EARFCN: 500, PCI: 7, Identity: identity(262, 2, 20, 200)}

	if score, _ := engine.Score(ctx, a, nil); score != 20 {
		t.Fatalf("first observation score = %d, want 20 (db absence only)", score)
	}
	score, evidence := engine.Score(ctx, b, nil)
	if score != 30 {
		t.Fatalf("churned observation score = %d, want 30", score)
	}
	if _, ok := evidence["identity_churn"]; !ok {
		t.Error("expected identity_churn evidence")
	}

	// Memory updates on every observation: repeating b is no longer churn.
	if score, _ := engine.Score(ctx, b, nil); score != 20 {
		t.Errorf("repeated observation score = %d, want 20", score)
	}

	// Same identity on a different channel is not churn.
	c := &models.ObservedTower{EARFCN: 501, PCI: 7, Identity: identity(262, 3, 30, 300)}
	if score, _ := engine.Score(ctx, c, nil); score != 20 {
		t.Errorf("different channel score = %d, want 20", score)
	}

	engine.ResetSession()
	if score, _ := engine.Score(ctx, a, nil); score != 20 {
		t.Errorf("post-reset score = %d, want 20", score)
	}
}

func TestLocationMismatchAlert(t *testing.T) {
	known := &models.CellTower{
		Technology: models.TechLTE,
		Identity:   models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1, Cell: 1},
		Latitude:   37.85, // ~8.9km north of the observer
		Longitude:  -122.42,
	}
	engine := newTestEngine(t, known)
	observer := &models.Position{Latitude: 37.77, Longitude: -122.42}

	obs := &models.ObservedTower{
		Technology: models.TechLTE,
		EARFCN:     1850, PCI: 42,
		Identity: identity(310, 410, 1, 1),
	}
	alerts := engine.Analyze(context.Background(), obs, observer)

	var mismatch *Alert
	for i := range alerts {
		if alerts[i].Type == AlertLocationMismatch {
			mismatch = &alerts[i]
		}
		if alerts[i].Type == AlertUnknownTower {
			t.Error("resolved tower must not raise UNKNOWN_TOWER")
		}
	}
	if mismatch == nil {
		t.Fatal("expected LOCATION_MISMATCH alert")
	}
	if mismatch.Severity != SeverityHigh {
		t.Errorf("severity = %s, want HIGH", mismatch.Severity)
	}
	if _, ok := mismatch.Evidence["measured_distance_km"]; !ok {
		t.Error("expected measured_distance_km evidence")
	}
	// Between 5 and 10 km scores the smaller location weight.
	if obs.RiskScore != 8 {
		t.Errorf("risk score = %d, want 8", obs.RiskScore)
	}
}

func TestAlertsFilter(t *testing.T) {
	engine := newTestEngine(t)
	obs := &models.ObservedTower{
		Technology: models.TechLTE,
		EARFCN:     1850, PCI: 42,
		Identity:   identity(310, 410, 1234, 567890),
		RSRP:       floatPtr(-55),
		Encryption: "A5/0",
	}
	engine.Analyze(context.Background(), obs, nil)

	all := engine.Alerts(AlertFilter{})
	if len(all) != 3 {
		t.Fatalf("unfiltered alerts = %d, want 3", len(all))
	}

	critical := SeverityCritical
	got := engine.Alerts(AlertFilter{Severity: &critical})
	if len(got) != 2 {
		t.Errorf("critical alerts = %d, want 2", len(got))
	}

	unknownType := AlertUnknownTower
	got = engine.Alerts(AlertFilter{Type: &unknownType})
	if len(got) != 1 {
		t.Errorf("unknown-tower alerts = %d, want 1", len(got))
	}

	engine.ClearAlerts()
	if remaining := engine.Alerts(AlertFilter{}); len(remaining) != 0 {
		t.Errorf("alerts after clear = %d, want 0", len(remaining))
	}
}

func TestAlertTitlesTotal(t *testing.T) {
	kinds := []AlertType{
		AlertStingray, AlertEncryptionDowngrade, AlertRogueTower,
		AlertSilentSMS, AlertUnknownTower, AlertLocationMismatch,
		AlertSignalAnomaly, AlertTrackingAttempt,
	}
	for _, k := range kinds {
		if alertTitles[k] == "" {
			t.Errorf("alert type %s has no title", k)
		}
	}
	if len(alertTitles) != len(kinds) {
		t.Errorf("alertTitles has %d entries, want %d", len(alertTitles), len(kinds))
	}
}

func TestEngineMetricsSnapshot(t *testing.T) {
	engine := newTestEngine(t)
	obs := &models.ObservedTower{
		EARFCN: 100, PCI: 1,
		RSRP:       floatPtr(-55),
		Encryption: "A5/0",
	}
	engine.Analyze(context.Background(), obs, nil)

	m := engine.Metrics()
	if m.ObservationsAnalyzed != 1 {
		t.Errorf("observations = %d, want 1", m.ObservationsAnalyzed)
	}
	if m.AlertsGenerated == 0 {
		t.Error("expected at least one alert counted")
	}
	if m.LastAnalyzedAt.IsZero() {
		t.Error("LastAnalyzedAt not set")
	}
}
