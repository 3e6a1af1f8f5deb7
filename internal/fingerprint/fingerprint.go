// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package fingerprint builds canonical RF fingerprints from tower
// observations and compares them for identity continuity. Fingerprints
// are created fresh per observation, never mutated, and compared
// structurally.
package fingerprint

import (
	"fmt"

	"github.com/goccy/go-json"
)

// RFFingerprint captures the identity-defining RF characteristics of one
// observed cell. PCI and EARFCN are mandatory; every other field is
// optional and participates in hashing/similarity only when present.
type RFFingerprint struct {
	PCI    int `json:"pci"`
	EARFCN int `json:"earfcn"`

	BandwidthMHz *float64 `json:"bandwidth_mhz,omitempty"`
	CyclicPrefix string   `json:"cyclic_prefix,omitempty"`
	AntennaPorts *int     `json:"antenna_ports,omitempty"`
	DuplexMode   string   `json:"duplex_mode,omitempty"`

	// Truncated content digests of raw system information blocks.
	MIBDigest  string `json:"mib_digest,omitempty"`
	SIB1Digest string `json:"sib1_digest,omitempty"`

	// Signal statistics. Not identity-defining; carried for diagnostics
	// and for the timing-offset similarity factor.
	RSRPVariance    *float64 `json:"rsrp_variance,omitempty"`
	TimingOffset    *float64 `json:"timing_offset,omitempty"`
	FrequencyOffset *float64 `json:"frequency_offset,omitempty"`
}

// ToMap serializes the fingerprint into a generic map, the shape exported
// to collaborators.
func (fp *RFFingerprint) ToMap() (map[string]any, error) {
	data, err := json.Marshal(fp)
	if err != nil {
		return nil, fmt.Errorf("marshal fingerprint: %w", err)
	}

	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal fingerprint map: %w", err)
	}
	return out, nil
}

// FromMap decodes a fingerprint from a generic map. Unknown keys are
// ignored.
func FromMap(m map[string]any) (*RFFingerprint, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal fingerprint map: %w", err)
	}

	var fp RFFingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}
	return &fp, nil
}
