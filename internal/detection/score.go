// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rfwatch/cellsentry/internal/geometry"
	"github.com/rfwatch/cellsentry/internal/models"
)

// Factor weights of the additive risk heuristic. These are contract, not
// tuning knobs: collaborating components compare scores against the
// configured thresholds, so changing a weight changes alert semantics
// everywhere.
const (
	weightSignalStrong   = 25 // RSRP above the strong-signal threshold
	weightSignalElevated = 10 // RSRP within 10 dB below the threshold
	weightCipherWeak     = 25 // broken or null cipher reported
	weightCipherMissing  = 10 // system info decoded but no cipher reported
	weightNotInDatabase  = 20 // identity resolved to no reference record
	weightLocationFar    = 15 // reference position > FarMismatchKm away
	weightLocationOff    = 8  // reference position > MismatchKm away
	weightIdentityChurn  = 10 // same channel re-broadcasting a new identity
	weightSNRImplausible = 5  // SNR above the anomaly threshold

	signalElevatedWindow = 10.0
	maxRiskScore         = 100
)

// score runs the additive heuristic. Factors whose inputs are absent are
// skipped entirely; they neither add to the score nor appear in the
// evidence map. Callers hold e.mu.
func (e *Engine) score(ctx context.Context, obs *models.ObservedTower, observer *models.Position, match *models.CellTower) (int, map[string]any) {
	score := 0
	evidence := make(map[string]any)

	// Signal strength. A serving cell this strong is either meters away
	// or transmitting at rogue power levels.
	if obs.RSRP != nil {
		switch rsrp := *obs.RSRP; {
		case rsrp > e.cfg.RSRPStrongDBm:
			score += weightSignalStrong
			evidence["signal_strength"] = contribution(weightSignalStrong,
				fmt.Sprintf("RSRP %.1f dBm exceeds %.1f dBm", rsrp, e.cfg.RSRPStrongDBm))
		case rsrp > e.cfg.RSRPStrongDBm-signalElevatedWindow:
			score += weightSignalElevated
			evidence["signal_strength"] = contribution(weightSignalElevated,
				fmt.Sprintf("RSRP %.1f dBm is elevated", rsrp))
		}
	}

	// Encryption. A reported weak cipher is a direct downgrade signal; a
	// decoded cell that reports no cipher at all is suspicious but weaker
	// evidence.
	if cipher := normalizeCipher(obs.Encryption); cipher != "" {
		if weakCiphers[cipher] {
			score += weightCipherWeak
			evidence["encryption"] = contribution(weightCipherWeak,
				fmt.Sprintf("weak or null cipher %s", cipher))
		}
	} else if obs.HasSystemInfo() {
		score += weightCipherMissing
		evidence["encryption"] = contribution(weightCipherMissing,
			"system information decoded but no cipher reported")
	}

	// Database presence. Only scored when the observation carries an
	// identity: an undecoded identity is missing input, not evidence.
	if obs.Identity != nil && match == nil {
		score += weightNotInDatabase
		evidence["database"] = contribution(weightNotInDatabase,
			fmt.Sprintf("cell %s not in reference database", obs.Identity.Key()))
	}

	// Location consistency against the reference record.
	if match != nil && observer != nil {
		distKm := geometry.HaversineKm(observer.Latitude, observer.Longitude, match.Latitude, match.Longitude)
		switch {
		case distKm > e.cfg.FarMismatchKm:
			score += weightLocationFar
			evidence["location"] = contribution(weightLocationFar,
				fmt.Sprintf("reference position %.1f km from observer", distKm))
		case distKm > e.cfg.MismatchKm:
			score += weightLocationOff
			evidence["location"] = contribution(weightLocationOff,
				fmt.Sprintf("reference position %.1f km from observer", distKm))
		}
	}

	// Identity churn: the same physical channel broadcasting a different
	// network identity within one session. Memory is updated on every
	// identified observation, scored or not, so churn is detected against
	// the most recent identity rather than the first.
	if obs.Identity != nil {
		key := sessionKey{EARFCN: obs.EARFCN, PCI: obs.PCI}
		hash := e.fingerprints.Hash(e.fingerprintFor(obs))
		if prev, ok := e.seen[key]; ok && prev.Identity != *obs.Identity {
			score += weightIdentityChurn
			detail := fmt.Sprintf("channel previously broadcast %s, now %s",
				prev.Identity.Key(), obs.Identity.Key())
			if prev.FingerprintHash != "" && prev.FingerprintHash == hash {
				// Same physical transmitter, new identity.
				detail += " with an unchanged RF fingerprint"
			}
			evidence["identity_churn"] = contribution(weightIdentityChurn, detail)
		}
		e.seen[key] = sessionRecord{
			Identity:        *obs.Identity,
			FingerprintHash: hash,
			LastSeen:        time.Now(),
		}
	}

	// Implausibly clean signal, consistent with a very short radio path.
	if obs.SNR != nil && *obs.SNR > e.cfg.SNRAnomalyDB {
		score += weightSNRImplausible
		evidence["snr"] = contribution(weightSNRImplausible,
			fmt.Sprintf("SNR %.1f dB exceeds %.1f dB", *obs.SNR, e.cfg.SNRAnomalyDB))
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score, evidence
}

// contribution is one evidence entry: the factor's point value plus a
// human-readable detail.
func contribution(points int, detail string) map[string]any {
	return map[string]any{
		"points": points,
		"detail": detail,
	}
}
