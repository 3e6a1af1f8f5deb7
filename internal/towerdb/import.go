// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package towerdb

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/metrics"
	"github.com/rfwatch/cellsentry/internal/models"
)

// ImportCSV reads an OpenCellID-format reference CSV
// (radio,mcc,net,area,cell,unit,lon,lat,range,samples,changeable,created,
// updated,averageSignal) and bulk-imports it into the store, replacing
// the previous dataset. Rows that fail parsing or coordinate validation
// are skipped and excluded from the returned count; the import itself
// never aborts on a bad row.
func ImportCSV(ctx context.Context, store Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open reference csv: %w", err)
	}
	defer f.Close()

	count, err := importReader(ctx, store, f)
	if err != nil {
		return 0, err
	}

	logging.Info().
		Str("component", "towerdb").
		Str("path", path).
		Int("towers", count).
		Msg("reference csv imported")
	return count, nil
}

// importReader parses the CSV stream and delegates to BulkImport.
func importReader(ctx context.Context, store Store, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate trailing columns across dataset versions
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return 0, err
	}

	var records []models.CellTower
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed line is a data-quality problem, not a fatal one.
			metrics.ImportRowsSkipped.WithLabelValues("parse").Inc()
			continue
		}

		tower, ok := parseRow(row, cols)
		if !ok {
			metrics.ImportRowsSkipped.WithLabelValues("parse").Inc()
			continue
		}
		records = append(records, tower)
	}

	return store.BulkImport(ctx, records)
}

// columnIndices holds the resolved positions of the columns we consume.
type columnIndices struct {
	radio, mcc, net, area, cell    int
	lon, lat, rng, samples, avgSig int
}

// mapHeader resolves column positions from the header row. The identity
// and coordinate columns are mandatory; the rest are optional (-1).
func mapHeader(header []string) (columnIndices, error) {
	cols := columnIndices{
		radio: -1, mcc: -1, net: -1, area: -1, cell: -1,
		lon: -1, lat: -1, rng: -1, samples: -1, avgSig: -1,
	}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "radio":
			cols.radio = i
		case "mcc":
			cols.mcc = i
		case "net", "mnc":
			cols.net = i
		case "area", "lac", "tac":
			cols.area = i
		case "cell", "cell_id", "cid":
			cols.cell = i
		case "lon", "longitude":
			cols.lon = i
		case "lat", "latitude":
			cols.lat = i
		case "range":
			cols.rng = i
		case "samples":
			cols.samples = i
		case "averagesignal", "average_signal":
			cols.avgSig = i
		}
	}

	for name, idx := range map[string]int{
		"radio": cols.radio, "mcc": cols.mcc, "net": cols.net,
		"area": cols.area, "cell": cols.cell, "lon": cols.lon, "lat": cols.lat,
	} {
		if idx < 0 {
			return cols, fmt.Errorf("reference csv missing required column %q", name)
		}
	}
	return cols, nil
}

// parseRow converts one CSV row into a CellTower. Returns ok=false on any
// parse failure; coordinate-range and duplicate checks happen later in
// BulkImport.
func parseRow(row []string, cols columnIndices) (models.CellTower, bool) {
	var t models.CellTower

	maxIdx := cols.cell
	for _, idx := range []int{cols.radio, cols.mcc, cols.net, cols.area, cols.lon, cols.lat} {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if len(row) <= maxIdx {
		return t, false
	}

	tech, ok := models.ParseTechnology(row[cols.radio])
	if !ok {
		return t, false
	}
	t.Technology = tech

	mcc, err := strconv.Atoi(strings.TrimSpace(row[cols.mcc]))
	if err != nil {
		return t, false
	}
	mnc, err := strconv.Atoi(strings.TrimSpace(row[cols.net]))
	if err != nil {
		return t, false
	}
	area, err := strconv.Atoi(strings.TrimSpace(row[cols.area]))
	if err != nil {
		return t, false
	}
	cell, err := strconv.ParseInt(strings.TrimSpace(row[cols.cell]), 10, 64)
	if err != nil {
		return t, false
	}
	t.Identity = models.NetworkIdentity{MCC: mcc, MNC: mnc, Area: area, Cell: cell}

	t.Longitude, err = strconv.ParseFloat(strings.TrimSpace(row[cols.lon]), 64)
	if err != nil {
		return t, false
	}
	t.Latitude, err = strconv.ParseFloat(strings.TrimSpace(row[cols.lat]), 64)
	if err != nil {
		return t, false
	}

	// Optional columns: a parse failure here drops the field, not the row.
	if cols.rng >= 0 && cols.rng < len(row) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[cols.rng]), 64); err == nil && v > 0 {
			t.RangeM = &v
		}
	}
	if cols.samples >= 0 && cols.samples < len(row) {
		if v, err := strconv.Atoi(strings.TrimSpace(row[cols.samples])); err == nil && v > 0 {
			t.Samples = &v
		}
	}
	if cols.avgSig >= 0 && cols.avgSig < len(row) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[cols.avgSig]), 64); err == nil {
			t.AvgSignal = &v
		}
	}

	return t, true
}
