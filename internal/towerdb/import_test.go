// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package towerdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rfwatch/cellsentry/internal/models"
)

const sampleCSV = `radio,mcc,net,area,cell,unit,lon,lat,range,samples,changeable,created,updated,averageSignal
LTE,310,410,1234,567890,,-122.4194,37.7749,1500,42,1,1600000000,1700000000,-85
GSM,262,1,5000,12345,,13.405,52.52,,,1,1600000000,1700000000,
UMTS,234,15,777,88888,,-0.1278,51.5074,900,7,1,1600000000,1700000000,-92
LTE,310,410,1234,567890,,-100.0,40.0,,,1,1600000000,1700000000,
BOGUS,310,410,1,2,,-122.0,37.0,,,1,1600000000,1700000000,
LTE,notanumber,410,1,3,,-122.0,37.0,,,1,1600000000,1700000000,
LTE,310,410,1,4,,-200.0,37.0,,,1,1600000000,1700000000,
`

func TestImportCSV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "towers.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	// 7 data rows: 3 valid, 1 duplicate identity, 1 bad radio, 1 bad mcc,
	// 1 out-of-range longitude.
	count, err := ImportCSV(ctx, store, path)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if count != 3 {
		t.Fatalf("imported %d, want 3", count)
	}

	got, err := store.ByIdentity(ctx, models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1234, Cell: 567890})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("imported LTE tower not resolvable")
	}
	if got.Latitude != 37.7749 || got.Longitude != -122.4194 {
		t.Errorf("first-wins violated: got (%f, %f)", got.Latitude, got.Longitude)
	}
	if got.RangeM == nil || *got.RangeM != 1500 {
		t.Errorf("range not parsed: %v", got.RangeM)
	}
	if got.Samples == nil || *got.Samples != 42 {
		t.Errorf("samples not parsed: %v", got.Samples)
	}
	if got.AvgSignal == nil || *got.AvgSignal != -85 {
		t.Errorf("average signal not parsed: %v", got.AvgSignal)
	}

	// Optional columns absent on the GSM row.
	gsm, err := store.ByIdentity(ctx, models.NetworkIdentity{MCC: 262, MNC: 1, Area: 5000, Cell: 12345})
	if err != nil {
		t.Fatal(err)
	}
	if gsm == nil {
		t.Fatal("imported GSM tower not resolvable")
	}
	if gsm.RangeM != nil || gsm.Samples != nil || gsm.AvgSignal != nil {
		t.Errorf("empty optional columns produced values: %+v", gsm)
	}
}

func TestImportCSVMissingFile(t *testing.T) {
	store := openTestStore(t)
	if _, err := ImportCSV(context.Background(), store, "/nonexistent/towers.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestImportReaderHeaderValidation(t *testing.T) {
	store := openTestStore(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing radio", "mcc,net,area,cell,lon,lat"},
		{"missing coordinates", "radio,mcc,net,area,cell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importReader(context.Background(), store, strings.NewReader(tt.header+"\n"))
			if err == nil {
				t.Error("expected header validation error")
			}
		})
	}
}

func TestImportReaderHeaderAliases(t *testing.T) {
	store := openTestStore(t)

	// MLS-style column names resolve through the alias table.
	csv := "radio,mcc,mnc,lac,cid,longitude,latitude\n" +
		"LTE,310,410,1,99,-122.4,37.7\n"
	count, err := importReader(context.Background(), store, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("importReader: %v", err)
	}
	if count != 1 {
		t.Fatalf("imported %d, want 1", count)
	}
}

func TestImportReaderIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		count, err := importReader(ctx, store, strings.NewReader(sampleCSV))
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if count != 3 {
			t.Fatalf("pass %d imported %d, want 3", i, count)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Errorf("re-import left %d towers, want 3", stats.Total)
	}
}
