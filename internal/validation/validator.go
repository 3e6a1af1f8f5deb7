// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package validation provides struct validation using
// go-playground/validator v10 through a thread-safe singleton instance.
// It is used at the ingestion boundaries: reference-data rows and
// observation records are validated before they enter the core.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rfwatch/cellsentry/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the singleton validator instance. The instance caches
// struct metadata, so sharing one across the process is both safe and
// faster than constructing per call.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// radio: a parseable radio-technology tag (GSM/UMTS/WCDMA/LTE/NR).
		_ = validate.RegisterValidation("radio", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseTechnology(fl.Field().String())
			return ok
		})

		// mcc: a plausible mobile country code.
		_ = validate.RegisterValidation("mcc", func(fl validator.FieldLevel) bool {
			v := fl.Field().Int()
			return v >= 200 && v <= 999
		})
	})
	return validate
}

// FieldError describes a single failed field.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
}

// StructError aggregates the field errors of one struct validation.
type StructError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *StructError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateStruct validates a struct and translates validator errors into
// a *StructError with a descriptive reason per field. Inputs failing
// validation are rejected, never silently coerced.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error (nil or non-struct).
		return fmt.Errorf("invalid validation target: %w", err)
	}

	out := &StructError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// ValidCoordinates reports whether a latitude/longitude pair is within
// the WGS84 domain. Used for cheap per-row checks during bulk import
// where a full struct validation per row would dominate the load time.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
