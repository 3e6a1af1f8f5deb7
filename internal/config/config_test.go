// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: debug
database:
  path: /tmp/cellsentry-test
detection:
  mismatch_km: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CELLSENTRY_SERVER_PORT", "9999")
	t.Setenv("CELLSENTRY_LOGGING_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// File layer.
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/tmp/cellsentry-test" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Detection.MismatchKm != 3 {
		t.Errorf("detection.mismatch_km = %f, want 3", cfg.Detection.MismatchKm)
	}

	// Env layer overrides.
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("logging.format = %q, want console", cfg.Logging.Format)
	}

	// Untouched defaults survive.
	if cfg.Detection.CriticalThreshold != 70 {
		t.Errorf("detection.critical_threshold = %d, want 70", cfg.Detection.CriticalThreshold)
	}
}

func TestValidateCrossFieldConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "warning at or above critical",
			mutate: func(c *Config) {
				c.Detection.WarningThreshold = 80
			},
		},
		{
			name: "mismatch at or above far mismatch",
			mutate: func(c *Config) {
				c.Detection.MismatchKm = 10
			},
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
		},
		{
			name: "port out of range",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CELLSENTRY_LOGGING_LEVEL", "logging.level"},
		{"CELLSENTRY_DATABASE_PATH", "database.path"},
		{"CELLSENTRY_IMPORT_CSV_PATH", "import.csv_path"},
		{"CELLSENTRY_DETECTION_SILENT_SMS_TRACKING_COUNT", "detection.silent_sms_tracking_count"},
		{"CELLSENTRY_SERVER_PORT", "server.port"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
