// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package towerdb

import (
	"math"

	"github.com/rfwatch/cellsentry/internal/models"
)

// indexCellSizeKm is the grid cell edge length. Reference towers cluster
// densely in cities, so a finer grid than the detection-range queries
// (typically 5-20 km) keeps candidate lists short.
const indexCellSizeKm = 25.0

// kmPerDegree is the flat-Earth approximation used for the prefilter
// stage only; the refinement stage corrects final distances with the
// haversine formula.
const kmPerDegree = 111.0

// indexEntry maps one stored tower to the axis-aligned bounding box of
// its position (a degenerate, single-point box).
type indexEntry struct {
	tower                          *models.CellTower
	minLat, maxLat, minLon, maxLon float64
}

// cellKey identifies one grid cell.
type cellKey struct {
	x, y int
}

// spatialIndex divides geographic space into grid cells so that a range
// query only inspects entries in cells overlapping the query box instead
// of scanning every tower. The index is immutable after construction and
// rebuilt wholesale on each bulk import.
type spatialIndex struct {
	cellSizeDeg float64
	cells       map[cellKey][]indexEntry
	count       int
}

// newSpatialIndex builds an index over the given towers.
func newSpatialIndex(towers []*models.CellTower) *spatialIndex {
	idx := &spatialIndex{
		cellSizeDeg: indexCellSizeKm / kmPerDegree,
		cells:       make(map[cellKey][]indexEntry),
	}

	for _, t := range towers {
		entry := indexEntry{
			tower:  t,
			minLat: t.Latitude,
			maxLat: t.Latitude,
			minLon: t.Longitude,
			maxLon: t.Longitude,
		}
		key := idx.keyFor(t.Latitude, t.Longitude)
		idx.cells[key] = append(idx.cells[key], entry)
		idx.count++
	}

	return idx
}

// keyFor returns the grid cell containing a coordinate.
func (idx *spatialIndex) keyFor(lat, lon float64) cellKey {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return cellKey{
		x: int(math.Floor(lon / idx.cellSizeDeg)),
		y: int(math.Floor(lat / idx.cellSizeDeg)),
	}
}

// query returns every tower whose bounding box intersects the query box.
// This is the cheap prefilter; callers refine with exact distances.
func (idx *spatialIndex) query(minLat, maxLat, minLon, maxLon float64) []*models.CellTower {
	lo := idx.keyFor(minLat, minLon)
	hi := idx.keyFor(maxLat, maxLon)

	var out []*models.CellTower
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for _, e := range idx.cells[cellKey{x: x, y: y}] {
				if e.maxLat < minLat || e.minLat > maxLat ||
					e.maxLon < minLon || e.minLon > maxLon {
					continue
				}
				out = append(out, e.tower)
			}
		}
	}
	return out
}

// size returns the number of indexed towers.
func (idx *spatialIndex) size() int {
	return idx.count
}
