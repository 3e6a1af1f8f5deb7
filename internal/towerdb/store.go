// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package towerdb implements the reference tower database: a durable,
// bulk-loadable store of known cells with bounding-box prefiltered
// nearest-neighbor queries.
//
// Queries are two-phase by design: a flat-Earth bounding-box prefilter
// over an in-memory grid index, then exact haversine refinement and
// ordering. The prefilter can admit candidates slightly beyond the
// requested radius near box corners; callers needing a hard cutoff must
// post-filter on DistanceKm.
package towerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rfwatch/cellsentry/internal/geometry"
	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/metrics"
	"github.com/rfwatch/cellsentry/internal/models"
	"github.com/rfwatch/cellsentry/internal/validation"
)

// towerKeyPrefix namespaces tower records in the backing store.
const towerKeyPrefix = "tower:"

// defaultNearbyLimit applies when a caller passes limit <= 0.
const defaultNearbyLimit = 10

// Stats are the aggregate counts exposed for diagnostics. ByCountry is
// keyed by mobile country code.
type Stats struct {
	Total        int                       `json:"total"`
	ByTechnology map[models.Technology]int `json:"by_technology"`
	ByCountry    map[int]int               `json:"by_country"`
}

// Store is the reference tower database consumed by the scoring engine.
// Lookup misses are (nil, nil), never errors.
type Store interface {
	// BulkImport atomically replaces the entire table and its spatial
	// index with the validated subset of records, returning the number
	// of records stored. Invalid rows are skipped; duplicate identity
	// tuples resolve first-wins.
	BulkImport(ctx context.Context, records []models.CellTower) (int, error)

	// Nearby returns up to limit towers ordered by ascending haversine
	// distance from the query point, prefiltered by a radius-derived
	// bounding box. tech == "" matches all technologies.
	Nearby(ctx context.Context, lat, lon, radiusKm float64, tech models.Technology, limit int) ([]models.TowerWithDistance, error)

	// ByIdentity is an exact network-identity lookup.
	ByIdentity(ctx context.Context, id models.NetworkIdentity) (*models.CellTower, error)

	// Stats returns aggregate record counts.
	Stats(ctx context.Context) (Stats, error)
}

// BadgerStore implements Store with BadgerDB as the durable record store
// and an in-memory grid index for spatial prefiltering. Reads are
// concurrent; BulkImport excludes all readers for its duration so a
// reader never observes a partially rebuilt store.
type BadgerStore struct {
	db *badger.DB

	mu     sync.RWMutex
	towers map[string]*models.CellTower
	index  *spatialIndex
	stats  Stats
}

// NewBadgerStore opens a store over an existing Badger handle, loading
// any previously imported records and rebuilding the spatial index so a
// restart does not require re-importing the reference CSV.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	s := &BadgerStore{
		db:     db,
		towers: make(map[string]*models.CellTower),
	}

	if err := s.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("load tower records: %w", err)
	}

	logging.Info().
		Str("component", "towerdb").
		Int("towers", s.stats.Total).
		Msg("tower store opened")

	return s, nil
}

// loadFromDisk scans the tower prefix and rebuilds the in-memory state.
func (s *BadgerStore) loadFromDisk() error {
	towers := make(map[string]*models.CellTower)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(towerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var t models.CellTower
				if err := json.Unmarshal(val, &t); err != nil {
					return fmt.Errorf("decode tower record: %w", err)
				}
				towers[t.Identity.Key()] = &t
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.towers = towers
	s.index = newSpatialIndex(towerSlice(towers))
	s.stats = computeStats(towers)
	return nil
}

// BulkImport implements Store. The replace is atomic with respect to
// readers: validation and index construction happen outside the lock,
// then the swap (disk clear, batch write, in-memory swap) runs under the
// writer lock.
func (s *BadgerStore) BulkImport(ctx context.Context, records []models.CellTower) (int, error) {
	accepted := make(map[string]*models.CellTower, len(records))

	for i := range records {
		t := records[i]

		if _, ok := models.ParseTechnology(string(t.Technology)); !ok {
			metrics.ImportRowsSkipped.WithLabelValues("technology").Inc()
			continue
		}
		if !validation.ValidCoordinates(t.Latitude, t.Longitude) {
			metrics.ImportRowsSkipped.WithLabelValues("coordinates").Inc()
			continue
		}

		key := t.Identity.Key()
		if _, dup := accepted[key]; dup {
			// First record wins; later duplicates are ignored.
			metrics.ImportRowsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}
		accepted[key] = &t
	}

	index := newSpatialIndex(towerSlice(accepted))
	stats := computeStats(accepted)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DropPrefix([]byte(towerKeyPrefix)); err != nil {
		return 0, fmt.Errorf("clear tower records: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key, t := range accepted {
		data, err := json.Marshal(t)
		if err != nil {
			return 0, fmt.Errorf("encode tower %s: %w", key, err)
		}
		if err := wb.Set([]byte(towerKeyPrefix+key), data); err != nil {
			return 0, fmt.Errorf("write tower %s: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush tower records: %w", err)
	}

	s.towers = accepted
	s.index = index
	s.stats = stats

	metrics.TowersImported.Add(float64(len(accepted)))
	logging.Info().
		Str("component", "towerdb").
		Int("records", len(records)).
		Int("stored", len(accepted)).
		Msg("bulk import completed")

	return len(accepted), nil
}

// Nearby implements Store.
func (s *BadgerStore) Nearby(ctx context.Context, lat, lon, radiusKm float64, tech models.Technology, limit int) ([]models.TowerWithDistance, error) {
	if !validation.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid query coordinates (%f, %f)", lat, lon)
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %f", radiusKm)
	}
	if limit <= 0 {
		limit = defaultNearbyLimit
	}

	start := time.Now()
	defer func() {
		metrics.SpatialQueryDuration.Observe(time.Since(start).Seconds())
	}()

	// Prefilter: radius converted to a degree box (flat-Earth
	// approximation, corrected by the haversine refinement below).
	deg := radiusKm / kmPerDegree

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.index.query(lat-deg, lat+deg, lon-deg, lon+deg)

	results := make([]models.TowerWithDistance, 0, len(candidates))
	for _, t := range candidates {
		if tech != "" && t.Technology != tech {
			continue
		}
		results = append(results, models.TowerWithDistance{
			CellTower:  *t,
			DistanceKm: geometry.HaversineKm(lat, lon, t.Latitude, t.Longitude),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	if len(results) > limit {
		results = results[:limit]
	}

	metrics.SpatialQueryResults.Observe(float64(len(results)))
	return results, nil
}

// ByIdentity implements Store. A miss returns (nil, nil).
func (s *BadgerStore) ByIdentity(ctx context.Context, id models.NetworkIdentity) (*models.CellTower, error) {
	s.mu.RLock()
	if t, ok := s.towers[id.Key()]; ok {
		copied := *t
		s.mu.RUnlock()
		return &copied, nil
	}
	s.mu.RUnlock()

	// Fall back to the durable store; covers a record written by another
	// handle to the same directory.
	var tower *models.CellTower
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(towerKeyPrefix + id.Key()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var t models.CellTower
			if err := json.Unmarshal(val, &t); err != nil {
				return fmt.Errorf("decode tower record: %w", err)
			}
			tower = &t
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("identity lookup %s: %w", id, err)
	}
	return tower, nil
}

// Stats implements Store.
func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Stats{
		Total:        s.stats.Total,
		ByTechnology: make(map[models.Technology]int, len(s.stats.ByTechnology)),
		ByCountry:    make(map[int]int, len(s.stats.ByCountry)),
	}
	for k, v := range s.stats.ByTechnology {
		out.ByTechnology[k] = v
	}
	for k, v := range s.stats.ByCountry {
		out.ByCountry[k] = v
	}
	return out, nil
}

// towerSlice flattens the record map for index construction.
func towerSlice(m map[string]*models.CellTower) []*models.CellTower {
	out := make([]*models.CellTower, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out
}

// computeStats aggregates counts over a record map.
func computeStats(m map[string]*models.CellTower) Stats {
	stats := Stats{
		Total:        len(m),
		ByTechnology: make(map[models.Technology]int),
		ByCountry:    make(map[int]int),
	}
	for _, t := range m {
		stats.ByTechnology[t.Technology]++
		stats.ByCountry[t.Identity.MCC]++
	}
	return stats
}

