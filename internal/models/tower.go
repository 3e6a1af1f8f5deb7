// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package models defines the shared data types of the analysis core:
// reference towers, per-scan observations, and their identity tuples.
package models

import (
	"fmt"
	"strings"
)

// Technology is the radio access technology of a cell.
type Technology string

const (
	TechGSM  Technology = "GSM"
	TechUMTS Technology = "UMTS"
	TechLTE  Technology = "LTE"
	TechNR   Technology = "NR"
)

// ParseTechnology normalizes a radio tag from reference data or a scanner
// into a Technology. OpenCellID-style aliases (CDMA is not supported and
// WCDMA maps to UMTS) are handled here.
func ParseTechnology(s string) (Technology, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GSM":
		return TechGSM, true
	case "UMTS", "WCDMA":
		return TechUMTS, true
	case "LTE":
		return TechLTE, true
	case "NR", "5G", "NR5G":
		return TechNR, true
	default:
		return "", false
	}
}

// NetworkIdentity is the globally unique identity tuple of a cell:
// mobile country code, mobile network code, area code (LAC or TAC),
// and cell id.
type NetworkIdentity struct {
	MCC  int   `json:"mcc" validate:"min=1,max=999"`
	MNC  int   `json:"mnc" validate:"min=0,max=999"`
	Area int   `json:"area" validate:"min=0"`
	Cell int64 `json:"cell" validate:"min=0"`
}

// Key returns the canonical storage key fragment for the identity tuple.
func (id NetworkIdentity) Key() string {
	return fmt.Sprintf("%d:%d:%d:%d", id.MCC, id.MNC, id.Area, id.Cell)
}

// String implements fmt.Stringer.
func (id NetworkIdentity) String() string {
	return id.Key()
}

// CellTower is a reference tower record. Records are immutable once
// imported; coordinate and identity invariants are enforced at import
// time and rows violating them are never stored.
type CellTower struct {
	Technology Technology      `json:"technology" validate:"oneof=GSM UMTS LTE NR"`
	Identity   NetworkIdentity `json:"identity"`
	Latitude   float64         `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64         `json:"longitude" validate:"min=-180,max=180"`

	// Optional coverage metadata from the reference dataset.
	RangeM    *float64 `json:"range_m,omitempty"`
	Samples   *int     `json:"samples,omitempty"`
	AvgSignal *float64 `json:"average_signal,omitempty"`
}

// TowerWithDistance is a spatial query result: a reference tower augmented
// with its haversine distance from the query point.
type TowerWithDistance struct {
	CellTower
	DistanceKm float64 `json:"distance_km"`
}

// Position is an observer position used for location-mismatch scoring.
type Position struct {
	Latitude  float64 `json:"lat" validate:"min=-90,max=90"`
	Longitude float64 `json:"lon" validate:"min=-180,max=180"`
}
