// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

// Package config loads layered configuration: built-in defaults, then an
// optional YAML file, then environment variables. Precedence is
// ENV > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rfwatch/cellsentry/internal/validation"
)

// DefaultConfigPaths lists where config files are searched, first hit
// wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cellsentry/config.yaml",
	"/etc/cellsentry/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CELLSENTRY_CONFIG"

// Config is the full runtime configuration.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Import    ImportConfig    `koanf:"import"`
	Detection DetectionConfig `koanf:"detection"`
	Server    ServerConfig    `koanf:"server"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig locates the durable store.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ImportConfig controls the reference CSV import at startup.
type ImportConfig struct {
	// CSVPath is the OpenCellID-format reference file. Empty disables
	// the startup import; a previously imported dataset is still loaded
	// from the database.
	CSVPath string `koanf:"csv_path"`
}

// DetectionConfig carries the scoring thresholds. The factor weights are
// fixed; only thresholds are configurable.
type DetectionConfig struct {
	CriticalThreshold      int     `koanf:"critical_threshold" validate:"gt=0,lte=100"`
	WarningThreshold       int     `koanf:"warning_threshold" validate:"gt=0,lte=100"`
	RSRPStrongDBm          float64 `koanf:"rsrp_strong_dbm" validate:"lt=0"`
	MismatchKm             float64 `koanf:"mismatch_km" validate:"gt=0"`
	FarMismatchKm          float64 `koanf:"far_mismatch_km" validate:"gt=0"`
	SNRAnomalyDB           float64 `koanf:"snr_anomaly_db" validate:"gt=0"`
	SilentSMSTrackingCount int     `koanf:"silent_sms_tracking_count" validate:"gt=0"`
}

// ServerConfig configures the operational HTTP listener (health and
// metrics only).
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path: "/data/cellsentry",
		},
		Import: ImportConfig{
			CSVPath: "",
		},
		Detection: DetectionConfig{
			CriticalThreshold:      70,
			WarningThreshold:       40,
			RSRPStrongDBm:          -65,
			MismatchKm:             5,
			FarMismatchKm:          10,
			SNRAnomalyDB:           30,
			SilentSMSTrackingCount: 3,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8380,
			Timeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the first config file
// found, and CELLSENTRY_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("CELLSENTRY_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps CELLSENTRY_* environment variables to config
// paths: the first segment selects the section, the rest joins with
// underscores.
//
//	CELLSENTRY_LOGGING_LEVEL            -> logging.level
//	CELLSENTRY_DATABASE_PATH            -> database.path
//	CELLSENTRY_IMPORT_CSV_PATH          -> import.csv_path
//	CELLSENTRY_DETECTION_MISMATCH_KM    -> detection.mismatch_km
//	CELLSENTRY_SERVER_PORT              -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "CELLSENTRY_"))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// Validate checks the assembled configuration, including the cross-field
// constraints struct tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Detection.WarningThreshold >= c.Detection.CriticalThreshold {
		return fmt.Errorf("detection.warning_threshold (%d) must be below detection.critical_threshold (%d)",
			c.Detection.WarningThreshold, c.Detection.CriticalThreshold)
	}
	if c.Detection.MismatchKm >= c.Detection.FarMismatchKm {
		return fmt.Errorf("detection.mismatch_km (%.1f) must be below detection.far_mismatch_km (%.1f)",
			c.Detection.MismatchKm, c.Detection.FarMismatchKm)
	}
	return nil
}
