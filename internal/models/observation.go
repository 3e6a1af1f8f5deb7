// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package models

// ObservedTower is one tower observation produced by an external scan
// collaborator. It is transient per-scan input; optional fields use
// pointers so a missing measurement is distinguishable from zero, and
// the scoring engine skips factors whose inputs are absent.
type ObservedTower struct {
	Technology Technology `json:"technology"`

	// EARFCN (or the technology's equivalent channel number) and PCI are
	// mandatory; together they key the engine's session memory.
	EARFCN int `json:"earfcn"`
	PCI    int `json:"pci"`

	// Identity is present only when the scanner decoded the cell's
	// broadcast identity.
	Identity *NetworkIdentity `json:"identity,omitempty"`

	// Signal measurements.
	RSRP        *float64  `json:"rsrp,omitempty"`
	RSRQ        *float64  `json:"rsrq,omitempty"`
	SNR         *float64  `json:"snr,omitempty"`
	RSRPSamples []float64 `json:"rsrp_samples,omitempty"`

	// Encryption is the reported cipher (e.g. "A5/1", "A5/0", "none").
	// Empty when the scanner could not determine it.
	Encryption string `json:"encryption,omitempty"`

	// Raw system information blocks, when captured.
	MIB  []byte `json:"mib,omitempty"`
	SIB1 []byte `json:"sib1,omitempty"`

	// RF configuration decoded from the MIB/SIB, when available.
	BandwidthMHz *float64 `json:"bandwidth_mhz,omitempty"`
	CyclicPrefix string   `json:"cyclic_prefix,omitempty"`
	AntennaPorts *int     `json:"antenna_ports,omitempty"`
	DuplexMode   string   `json:"duplex_mode,omitempty"`

	TimingAdvance *int `json:"timing_advance,omitempty"`

	// RiskScore is filled in by the scoring engine during analysis.
	RiskScore int `json:"risk_score,omitempty"`
}

// HasSystemInfo reports whether any raw system information was captured.
// An empty encryption field combined with captured system information is
// treated as a suspected null cipher by the scoring engine.
func (o *ObservedTower) HasSystemInfo() bool {
	return len(o.MIB) > 0 || len(o.SIB1) > 0
}
