// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// digestPrefixLen is the length of truncated content digests, in hex
// characters. 64 bits of a SHA-256 is stable and short enough to embed in
// alert payloads.
const digestPrefixLen = 16

// DefaultSameCellThreshold is the similarity above which two fingerprints
// are considered the same physical cell.
const DefaultSameCellThreshold = 0.8

// timingOffsetTolerance is the maximum timing-offset delta (in TA units)
// still counted as a match.
const timingOffsetTolerance = 10.0

// Observation is the subset of an observed tower the engine needs to
// build a fingerprint. Defined here so the package has no dependency on
// the scan pipeline; satisfied by *models.ObservedTower field-for-field.
type Observation struct {
	PCI          int
	EARFCN       int
	BandwidthMHz *float64
	CyclicPrefix string
	AntennaPorts *int
	DuplexMode   string
	MIB          []byte
	SIB1         []byte
	RSRPSamples  []float64
	TimingOffset *float64
}

// Engine creates, hashes and compares RF fingerprints. It is stateless
// and safe for concurrent use.
type Engine struct{}

// NewEngine returns a fingerprint engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Create builds a fingerprint from an observation. Raw MIB/SIB bytes are
// reduced to truncated content digests; two or more RSRP samples yield a
// sample variance.
func (e *Engine) Create(obs Observation) *RFFingerprint {
	fp := &RFFingerprint{
		PCI:          obs.PCI,
		EARFCN:       obs.EARFCN,
		BandwidthMHz: obs.BandwidthMHz,
		CyclicPrefix: obs.CyclicPrefix,
		AntennaPorts: obs.AntennaPorts,
		DuplexMode:   obs.DuplexMode,
		TimingOffset: obs.TimingOffset,
	}

	if len(obs.MIB) > 0 {
		fp.MIBDigest = contentDigest(obs.MIB)
	}
	if len(obs.SIB1) > 0 {
		fp.SIB1Digest = contentDigest(obs.SIB1)
	}
	if len(obs.RSRPSamples) >= 2 {
		v := sampleVariance(obs.RSRPSamples)
		fp.RSRPVariance = &v
	}

	return fp
}

// Hash returns a stable hex digest over the fingerprint's
// identity-defining fields. Identical field values always produce the
// same hash regardless of construction order; any differing
// identity-defining field changes it.
func (e *Engine) Hash(fp *RFFingerprint) string {
	// Canonical serialization: fixed field order, key=value pairs,
	// optional fields included only when present.
	parts := []string{
		fmt.Sprintf("pci=%d", fp.PCI),
		fmt.Sprintf("earfcn=%d", fp.EARFCN),
	}
	if fp.BandwidthMHz != nil {
		parts = append(parts, fmt.Sprintf("bandwidth=%g", *fp.BandwidthMHz))
	}
	if fp.CyclicPrefix != "" {
		parts = append(parts, "cyclic_prefix="+fp.CyclicPrefix)
	}
	if fp.AntennaPorts != nil {
		parts = append(parts, fmt.Sprintf("antenna_ports=%d", *fp.AntennaPorts))
	}
	if fp.DuplexMode != "" {
		parts = append(parts, "duplex="+fp.DuplexMode)
	}
	if fp.MIBDigest != "" {
		parts = append(parts, "mib="+fp.MIBDigest)
	}
	if fp.SIB1Digest != "" {
		parts = append(parts, "sib1="+fp.SIB1Digest)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}

// Similarity computes a weighted similarity score in [0, 1]. PCI and
// EARFCN always contribute; optional factors contribute only when both
// fingerprints carry the field, so a missing measurement neither helps
// nor hurts the score.
func (e *Engine) Similarity(a, b *RFFingerprint) float64 {
	var matched, possible float64

	// Mandatory identity fields.
	possible += 30
	if a.PCI == b.PCI {
		matched += 30
	}
	possible += 30
	if a.EARFCN == b.EARFCN {
		matched += 30
	}

	if a.BandwidthMHz != nil && b.BandwidthMHz != nil {
		possible += 10
		if *a.BandwidthMHz == *b.BandwidthMHz {
			matched += 10
		}
	}
	if a.CyclicPrefix != "" && b.CyclicPrefix != "" {
		possible += 5
		if a.CyclicPrefix == b.CyclicPrefix {
			matched += 5
		}
	}
	if a.AntennaPorts != nil && b.AntennaPorts != nil {
		possible += 5
		if *a.AntennaPorts == *b.AntennaPorts {
			matched += 5
		}
	}
	if digestsComparable(a.MIBDigest, b.MIBDigest) || digestsComparable(a.SIB1Digest, b.SIB1Digest) {
		possible += 10
		if digestsMatch(a, b) {
			matched += 10
		}
	}
	if a.DuplexMode != "" && b.DuplexMode != "" {
		possible += 5
		if a.DuplexMode == b.DuplexMode {
			matched += 5
		}
	}
	if a.TimingOffset != nil && b.TimingOffset != nil {
		possible += 5
		if math.Abs(*a.TimingOffset-*b.TimingOffset) < timingOffsetTolerance {
			matched += 5
		}
	}

	if possible == 0 {
		return 0
	}
	return matched / possible
}

// IsSameCell reports whether two fingerprints likely describe the same
// physical cell. A threshold <= 0 selects the default.
func (e *Engine) IsSameCell(a, b *RFFingerprint, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultSameCellThreshold
	}
	return e.Similarity(a, b) >= threshold
}

// digestsComparable reports whether both sides carry the digest.
func digestsComparable(a, b string) bool {
	return a != "" && b != ""
}

// digestsMatch compares whichever content digests both sides carry; all
// comparable digests must agree.
func digestsMatch(a, b *RFFingerprint) bool {
	if digestsComparable(a.MIBDigest, b.MIBDigest) && a.MIBDigest != b.MIBDigest {
		return false
	}
	if digestsComparable(a.SIB1Digest, b.SIB1Digest) && a.SIB1Digest != b.SIB1Digest {
		return false
	}
	return true
}

// contentDigest returns the truncated SHA-256 digest of raw SIB/MIB bytes.
func contentDigest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:digestPrefixLen]
}

// sampleVariance computes the unbiased sample variance of the inputs.
func sampleVariance(samples []float64) float64 {
	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	var sum float64
	for _, s := range samples {
		d := s - mean
		sum += d * d
	}
	return sum / float64(len(samples)-1)
}
