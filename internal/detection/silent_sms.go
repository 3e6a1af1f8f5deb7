// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rfwatch/cellsentry/internal/metrics"
	"github.com/rfwatch/cellsentry/internal/models"
)

// DetectSilentSMS inspects one SMS for covert-ping patterns: the Type 0
// protocol identifier (0x40), an empty Class 0 flash message, or an
// empty message-waiting-indication message. All three deliver to the
// handset without a user-visible trace while forcing the baseband to
// respond, which localizes the subscriber.
//
// Returns the alerts raised, or nil for an ordinary message. A second
// TRACKING_ATTEMPT alert is appended once the session's silent-SMS count
// reaches the configured threshold; the counter keeps incrementing after
// that, so a sustained campaign raises one TRACKING_ATTEMPT per ping.
func (e *Engine) DetectSilentSMS(msg *models.SMSMessage) []Alert {
	technique := classifySilentSMS(msg)
	if technique == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.silentSMS++

	evidence := map[string]any{
		"technique":     technique,
		"protocol_id":   msg.ProtocolID,
		"data_coding":   msg.DataCoding,
		"session_count": e.silentSMS,
	}
	if msg.Sender != "" {
		evidence["sender"] = msg.Sender
	}
	if msg.SMSC != "" {
		evidence["smsc"] = msg.SMSC
	}

	out := []Alert{{
		ID:          uuid.New(),
		Type:        AlertSilentSMS,
		Severity:    SeverityHigh,
		Title:       alertTitles[AlertSilentSMS],
		Description: fmt.Sprintf("Silent SMS detected (%s), %d this session", technique, e.silentSMS),
		Evidence:    evidence,
		Timestamp:   time.Now().UTC(),
	}}

	if e.silentSMS >= e.cfg.SilentSMSTrackingCount {
		out = append(out, Alert{
			ID:       uuid.New(),
			Type:     AlertTrackingAttempt,
			Severity: SeverityCritical,
			Title:    alertTitles[AlertTrackingAttempt],
			Description: fmt.Sprintf("%d silent SMS received this session, consistent with active location tracking",
				e.silentSMS),
			Evidence: map[string]any{
				"silent_sms_count": e.silentSMS,
				"threshold":        e.cfg.SilentSMSTrackingCount,
			},
			Timestamp: time.Now().UTC(),
		})
	}

	e.alerts = append(e.alerts, out...)
	for i := range out {
		metrics.AlertsGenerated.WithLabelValues(string(out[i].Type), string(out[i].Severity)).Inc()
	}
	e.engineMetrics.AlertsGenerated += int64(len(out))

	return out
}

// classifySilentSMS names the covert-delivery technique a message uses,
// or "" for an ordinary message.
func classifySilentSMS(msg *models.SMSMessage) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.ProtocolID == models.SMSTypeZeroPID:
		return "type-0 protocol identifier"
	case msg.IsClass0Flash() && msg.Body == "":
		return "empty class-0 flash"
	case msg.IsMessageWaiting() && msg.Body == "":
		return "empty message-waiting indication"
	}
	return ""
}
