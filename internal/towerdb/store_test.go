// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package towerdb

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/rfwatch/cellsentry/internal/models"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewBadgerStore(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func tower(mcc, mnc, area int, cell int64, tech models.Technology, lat, lon float64) models.CellTower {
	return models.CellTower{
		Technology: tech,
		Identity:   models.NetworkIdentity{MCC: mcc, MNC: mnc, Area: area, Cell: cell},
		Latitude:   lat,
		Longitude:  lon,
	}
}

// Downtown San Francisco reference set: one cell right at the query
// point, two progressively further north, one across the country.
func sfTestSet() []models.CellTower {
	return []models.CellTower{
		tower(310, 410, 1, 100, models.TechLTE, 37.7749, -122.4194),
		tower(310, 410, 1, 101, models.TechLTE, 37.7850, -122.4194),
		tower(310, 410, 1, 102, models.TechGSM, 37.8049, -122.4194),
		tower(310, 260, 9, 900, models.TechLTE, 40.7128, -74.0060),
	}
}

func TestBulkImportAndNearbyOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	n, err := store.BulkImport(ctx, sfTestSet())
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if n != 4 {
		t.Fatalf("imported %d, want 4", n)
	}

	got, err := store.Nearby(ctx, 37.7749, -122.4194, 10, "", 10)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3 (NYC tower outside the box)", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceKm < got[i-1].DistanceKm {
			t.Fatalf("results not ordered by distance: %f before %f",
				got[i-1].DistanceKm, got[i].DistanceKm)
		}
	}
	if got[0].Identity.Cell != 100 {
		t.Errorf("closest cell = %d, want 100", got[0].Identity.Cell)
	}
	if got[0].DistanceKm > 0.01 {
		t.Errorf("closest distance = %f km, want ~0", got[0].DistanceKm)
	}
}

func TestNearbyFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.BulkImport(ctx, sfTestSet()); err != nil {
		t.Fatal(err)
	}

	t.Run("technology filter", func(t *testing.T) {
		got, err := store.Nearby(ctx, 37.7749, -122.4194, 10, models.TechGSM, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Identity.Cell != 102 {
			t.Errorf("GSM filter returned %+v", got)
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		got, err := store.Nearby(ctx, 37.7749, -122.4194, 10, "", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("limit 2 returned %d results", len(got))
		}
	})

	t.Run("invalid coordinates rejected", func(t *testing.T) {
		if _, err := store.Nearby(ctx, 91, 0, 10, "", 10); err == nil {
			t.Error("expected error for latitude 91")
		}
	})

	t.Run("non-positive radius rejected", func(t *testing.T) {
		if _, err := store.Nearby(ctx, 37.77, -122.42, 0, "", 10); err == nil {
			t.Error("expected error for zero radius")
		}
	})
}

func TestBulkImportValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	records := []models.CellTower{
		tower(310, 410, 1, 100, models.TechLTE, 37.7749, -122.4194),
		tower(310, 410, 1, 100, models.TechLTE, 38.0, -122.0),       // duplicate identity
		tower(310, 410, 1, 101, models.TechLTE, 95.0, -122.4194),    // bad latitude
		tower(310, 410, 1, 102, models.Technology("FOO"), 37.0, -122.0), // bad technology
	}

	n, err := store.BulkImport(ctx, records)
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	// First record wins on duplicates.
	got, err := store.ByIdentity(ctx, models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1, Cell: 100})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Latitude != 37.7749 {
		t.Errorf("duplicate resolution kept %+v, want the first record", got)
	}
}

func TestBulkImportReplacesDataset(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.BulkImport(ctx, sfTestSet()); err != nil {
		t.Fatal(err)
	}
	replacement := []models.CellTower{
		tower(262, 1, 5, 500, models.TechNR, 52.52, 13.405),
	}
	n, err := store.BulkImport(ctx, replacement)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	// Old records are gone from both memory and disk.
	old, err := store.ByIdentity(ctx, models.NetworkIdentity{MCC: 310, MNC: 410, Area: 1, Cell: 100})
	if err != nil {
		t.Fatal(err)
	}
	if old != nil {
		t.Error("replaced record still resolvable")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 {
		t.Errorf("stats.Total = %d, want 1", stats.Total)
	}
	if stats.ByCountry[262] != 1 {
		t.Errorf("ByCountry[262] = %d, want 1", stats.ByCountry[262])
	}
	if stats.ByTechnology[models.TechNR] != 1 {
		t.Errorf("ByTechnology[NR] = %d, want 1", stats.ByTechnology[models.TechNR])
	}
}

func TestByIdentityMiss(t *testing.T) {
	store := openTestStore(t)
	got, err := store.ByIdentity(context.Background(), models.NetworkIdentity{MCC: 1, MNC: 1, Area: 1, Cell: 1})
	if err != nil {
		t.Fatalf("miss returned error: %v", err)
	}
	if got != nil {
		t.Errorf("miss returned %+v, want nil", got)
	}
}

func TestStoreReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}

	store, err := NewBadgerStore(db)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.BulkImport(ctx, sfTestSet()); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: the dataset and the spatial index must come back without a
	// fresh CSV import.
	db, err = badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	reopened, err := NewBadgerStore(db)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 {
		t.Fatalf("reloaded %d towers, want 4", stats.Total)
	}
	got, err := reopened.Nearby(ctx, 37.7749, -122.4194, 10, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("spatial query after reload returned %d, want 3", len(got))
	}
}
