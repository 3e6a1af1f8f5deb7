// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package towerdb

import (
	"testing"

	"github.com/rfwatch/cellsentry/internal/models"
)

func TestSpatialIndexQuery(t *testing.T) {
	set := sfTestSet()
	towers := make([]*models.CellTower, len(set))
	for i := range set {
		towers[i] = &set[i]
	}
	idx := newSpatialIndex(towers)

	if idx.size() != 4 {
		t.Fatalf("index size = %d, want 4", idx.size())
	}

	t.Run("box around san francisco", func(t *testing.T) {
		got := idx.query(37.7, 37.9, -122.5, -122.3)
		if len(got) != 3 {
			t.Errorf("candidates = %d, want 3", len(got))
		}
	})

	t.Run("box around nyc", func(t *testing.T) {
		got := idx.query(40.6, 40.8, -74.1, -73.9)
		if len(got) != 1 {
			t.Fatalf("candidates = %d, want 1", len(got))
		}
		if got[0].Identity.Cell != 900 {
			t.Errorf("candidate = cell %d, want 900", got[0].Identity.Cell)
		}
	})

	t.Run("empty region", func(t *testing.T) {
		if got := idx.query(-10, -9, 10, 11); len(got) != 0 {
			t.Errorf("candidates = %d, want 0", len(got))
		}
	})

	t.Run("box spanning multiple grid cells", func(t *testing.T) {
		// Whole west coast: still only the three SF towers.
		got := idx.query(32, 45, -125, -115)
		if len(got) != 3 {
			t.Errorf("candidates = %d, want 3", len(got))
		}
	})
}

func TestSpatialIndexEmpty(t *testing.T) {
	idx := newSpatialIndex(nil)
	if idx.size() != 0 {
		t.Errorf("empty index size = %d", idx.size())
	}
	if got := idx.query(-90, 90, -180, 180); len(got) != 0 {
		t.Errorf("empty index returned %d candidates", len(got))
	}
}

func TestSpatialIndexLongitudeNormalization(t *testing.T) {
	tokyo := tower(440, 10, 1, 1, models.TechLTE, 35.68, 139.69)
	idx := newSpatialIndex([]*models.CellTower{&tokyo})

	// A key computed from a wrapped longitude lands in the same cell.
	if idx.keyFor(35.68, 139.69) != idx.keyFor(35.68, 139.69+360) {
		t.Error("wrapped longitude maps to a different grid cell")
	}
}
