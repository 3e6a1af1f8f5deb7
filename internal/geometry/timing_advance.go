// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package geometry converts timing-advance measurements into distance
// estimates and produces display rings around an observer. All functions
// are pure and safe for concurrent use.
package geometry

import (
	"math"

	"github.com/rfwatch/cellsentry/internal/models"
)

// TAMode distinguishes technologies whose timing advance measures one-way
// propagation (GSM) from those measuring round trip.
type TAMode int

const (
	// OneWay: the TA value already encodes the one-way propagation delay.
	OneWay TAMode = iota
	// RoundTrip: the TA value encodes the full round trip, so the
	// distance to the tower is half the resolved range.
	RoundTrip
)

// TASpec holds the per-technology timing-advance constants.
type TASpec struct {
	// ResolutionM is the distance represented by one TA unit, in meters.
	ResolutionM float64
	// MaxTA is the largest valid TA value; inputs are clamped to [0, MaxTA].
	MaxTA int
	Mode  TAMode
}

// TATechnology selects a constants row. LTEFine covers the 0.52 m
// fine-adjustment steps some modems report alongside the coarse value.
type TATechnology string

const (
	TAGSM     TATechnology = "GSM"
	TAUMTS    TATechnology = "UMTS"
	TALTE     TATechnology = "LTE"
	TALTEFine TATechnology = "LTE_FINE"
	TANR      TATechnology = "NR"
)

// taSpecs is the per-technology constants table. GSM advances in bit
// periods (~553.85 m one-way); UMTS in chips; LTE/NR in multiples of
// 16*Ts (~78.12 m round trip).
var taSpecs = map[TATechnology]TASpec{
	TAGSM:     {ResolutionM: 553.85, MaxTA: 63, Mode: OneWay},
	TAUMTS:    {ResolutionM: 78.125, MaxTA: 2559, Mode: RoundTrip},
	TALTE:     {ResolutionM: 78.12, MaxTA: 1282, Mode: RoundTrip},
	TALTEFine: {ResolutionM: 0.52, MaxTA: 20512, Mode: RoundTrip},
	TANR:      {ResolutionM: 39.06, MaxTA: 3846, Mode: RoundTrip},
}

// SpecFor returns the constants for a technology tag, falling back to LTE
// for unknown tags so the estimator is total.
func SpecFor(tech TATechnology) TASpec {
	if spec, ok := taSpecs[tech]; ok {
		return spec
	}
	return taSpecs[TALTE]
}

// FromModelTechnology maps the shared Technology enum onto a TA table row.
func FromModelTechnology(tech models.Technology) TATechnology {
	switch tech {
	case models.TechGSM:
		return TAGSM
	case models.TechUMTS:
		return TAUMTS
	case models.TechNR:
		return TANR
	default:
		return TALTE
	}
}

// DistanceEstimate is the distance band derived from a timing-advance
// value. All distances are meters. Immutable derived value.
type DistanceEstimate struct {
	Technology      TATechnology `json:"technology"`
	TimingAdvance   int          `json:"timing_advance"`
	ResolutionM     float64      `json:"resolution_m"`
	MinDistanceM    float64      `json:"min_distance_m"`
	CenterDistanceM float64      `json:"center_distance_m"`
	MaxDistanceM    float64      `json:"max_distance_m"`
}

// EstimateDistance converts a timing-advance value into a distance band.
// The TA value is clamped to the technology's valid range. For a fixed
// technology the center distance is non-decreasing in ta.
func EstimateDistance(ta int, tech TATechnology) DistanceEstimate {
	spec := SpecFor(tech)

	if ta < 0 {
		ta = 0
	}
	if ta > spec.MaxTA {
		ta = spec.MaxTA
	}

	var center, halfWidth float64
	if spec.Mode == OneWay {
		center = float64(ta) * spec.ResolutionM
		halfWidth = spec.ResolutionM / 2
	} else {
		center = float64(ta) * spec.ResolutionM / 2
		halfWidth = spec.ResolutionM / 4
	}

	return DistanceEstimate{
		Technology:      tech,
		TimingAdvance:   ta,
		ResolutionM:     spec.ResolutionM,
		MinDistanceM:    math.Max(0, center-halfWidth),
		CenterDistanceM: center,
		MaxDistanceM:    center + halfWidth,
	}
}

// DistanceRing estimates the distance band for an observation's timing
// advance and returns the ring of coordinates at the center distance
// around the observer, ready for display. Returns a zero estimate and nil
// ring when the observation carries no timing advance.
func DistanceRing(obs *models.ObservedTower, observerLat, observerLon float64, points int) (DistanceEstimate, []Coordinate) {
	if obs == nil || obs.TimingAdvance == nil {
		return DistanceEstimate{}, nil
	}

	est := EstimateDistance(*obs.TimingAdvance, FromModelTechnology(obs.Technology))
	return est, RingCoordinates(observerLat, observerLon, est.CenterDistanceM, points)
}
