// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package services wraps the long-running components as suture services.
package services

import (
	"bufio"
	"context"
	"io"

	"github.com/goccy/go-json"

	"github.com/rfwatch/cellsentry/internal/detection"
	"github.com/rfwatch/cellsentry/internal/logging"
	"github.com/rfwatch/cellsentry/internal/models"
	"github.com/rfwatch/cellsentry/internal/validation"
)

// Analyzer is the detection surface the analysis loop consumes.
// Satisfied by *detection.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, obs *models.ObservedTower, observer *models.Position) []detection.Alert
	DetectSilentSMS(msg *models.SMSMessage) []detection.Alert
	ResetSession()
}

// scanRecord is one line of the scan collaborator's JSONL stream. Kind
// selects which payload field is populated.
type scanRecord struct {
	Kind        string                `json:"kind"`
	Observation *models.ObservedTower `json:"observation,omitempty"`
	Observer    *models.Position      `json:"observer,omitempty"`
	SMS         *models.SMSMessage    `json:"sms,omitempty"`
}

// AnalysisService consumes scan records from a JSONL stream, feeds them
// through the detection engine in capture order, and emits raised alerts
// as JSON lines on the output stream.
type AnalysisService struct {
	engine Analyzer
	in     io.Reader
	out    io.Writer
	name   string
}

// NewAnalysisService creates the scan-analysis loop service.
func NewAnalysisService(engine Analyzer, in io.Reader, out io.Writer) *AnalysisService {
	return &AnalysisService{
		engine: engine,
		in:     in,
		out:    out,
		name:   "analysis-loop",
	}
}

// Serve implements suture.Service. It reads records until the input
// stream ends or the context is canceled. A malformed line is logged and
// skipped; the stream keeps flowing.
func (s *AnalysisService) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(s.out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec scanRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logging.Warn().Err(err).Str("component", "analysis").Msg("malformed scan record")
			continue
		}

		for _, alert := range s.process(ctx, &rec) {
			if err := enc.Encode(alert.ToMap()); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Input exhausted: the scan session is over. Block until shutdown so
	// the supervisor does not treat a finished stream as a crash loop.
	logging.Info().Str("component", "analysis").Msg("scan stream ended")
	<-ctx.Done()
	return ctx.Err()
}

// process dispatches one record to the engine.
func (s *AnalysisService) process(ctx context.Context, rec *scanRecord) []detection.Alert {
	switch rec.Kind {
	case "observation":
		if rec.Observation == nil {
			logging.Warn().Str("component", "analysis").Msg("observation record without payload")
			return nil
		}
		if rec.Observer != nil && !validation.ValidCoordinates(rec.Observer.Latitude, rec.Observer.Longitude) {
			logging.Warn().
				Str("component", "analysis").
				Float64("lat", rec.Observer.Latitude).
				Float64("lon", rec.Observer.Longitude).
				Msg("observer position out of range, ignoring it")
			rec.Observer = nil
		}
		return s.engine.Analyze(ctx, rec.Observation, rec.Observer)
	case "sms":
		if rec.SMS == nil {
			logging.Warn().Str("component", "analysis").Msg("sms record without payload")
			return nil
		}
		return s.engine.DetectSilentSMS(rec.SMS)
	case "reset":
		s.engine.ResetSession()
		return nil
	default:
		logging.Warn().Str("component", "analysis").Str("kind", rec.Kind).Msg("unknown scan record kind")
		return nil
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *AnalysisService) String() string {
	return s.name
}
