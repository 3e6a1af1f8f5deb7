// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package models

// SMSMessage is a captured SMS-layer message submitted for silent-SMS
// analysis. ProtocolID and DataCoding are the raw TP-PID and TP-DCS
// octets from GSM 03.40 / 03.38.
type SMSMessage struct {
	Sender     string `json:"sender,omitempty"`
	SMSC       string `json:"smsc,omitempty"`
	ProtocolID int    `json:"protocol_id"`
	DataCoding int    `json:"data_coding"`
	Body       string `json:"body,omitempty"`
}

// SMS protocol constants used by silent-SMS detection.
const (
	// SMSTypeZeroPID is the TP-PID value for a "Type 0" message: the
	// handset acknowledges it but must discard it without user display,
	// which makes it the classic silent ping for presence tracking.
	SMSTypeZeroPID = 0x40
)

// IsClass0Flash reports whether the DCS marks a Class 0 (flash) message.
// Class bits are only meaningful when bit 4 flags them as present.
func (m *SMSMessage) IsClass0Flash() bool {
	return m.DataCoding&0x13 == 0x10
}

// IsMessageWaiting reports whether the DCS falls in the message-waiting
// indication groups (0xC0-0xEF).
func (m *SMSMessage) IsMessageWaiting() bool {
	return m.DataCoding >= 0xC0 && m.DataCoding <= 0xEF
}
