// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads microbench run settings from YAML.
//
// A file looks like:
//
//	suite: maps
//	ops_per_sample: 1000
//	num_samples: 100
//	dimensions: [time, memory]
//	output: results/maps.json
//	compare:
//	  dimension: time
//	  threshold: 0.05
//	  confidence: 0.95
//	telemetry:
//	  trace: false
//	  otlp_endpoint: localhost:4317
//	  metrics_file: microbench.prom
//	  otel_metrics: false
//	logging:
//	  level: info
//	  json: false
//	  dir: ""
//
// Absent keys keep their defaults. Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianBench/services/microbench/dimension"
	"github.com/AleutianAI/AleutianBench/services/microbench/report"
	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

// ErrInvalidConfig indicates a configuration file that failed validation.
var ErrInvalidConfig = errors.New("invalid microbench config")

// configValidate is the validator instance for config files.
// Initialized in init() with the dimension name check.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = configValidate.RegisterValidation("dimension", validateDimension)
}

// validateDimension accepts names that dimension.Lookup resolves.
func validateDimension(fl validator.FieldLevel) bool {
	name := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	return slices.Contains(dimension.BuiltinNames(), name)
}

// File is a microbench configuration file.
type File struct {
	Suite        string          `yaml:"suite"`
	OpsPerSample int             `yaml:"ops_per_sample" validate:"gte=1"`
	NumSamples   int             `yaml:"num_samples" validate:"gte=1"`
	Dimensions   []string        `yaml:"dimensions" validate:"min=1,unique,dive,dimension"`
	Output       string          `yaml:"output"`
	Compare      CompareConfig   `yaml:"compare"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Logging      LoggingConfig   `yaml:"logging"`
}

// CompareConfig holds the comparison settings.
type CompareConfig struct {
	Dimension  string  `yaml:"dimension" validate:"dimension"`
	Threshold  float64 `yaml:"threshold" validate:"gt=0,lt=1"`
	Confidence float64 `yaml:"confidence" validate:"gt=0,lt=1"`
}

// TelemetryConfig selects the telemetry outputs of a run.
type TelemetryConfig struct {
	Trace        bool   `yaml:"trace"`
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"omitempty,hostname_port"`
	MetricsFile  string `yaml:"metrics_file"`
	OTelMetrics  bool   `yaml:"otel_metrics"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// Default returns the settings used when no file is given.
func Default() *File {
	return &File{
		OpsPerSample: runner.DefaultOpsPerSample,
		NumSamples:   runner.DefaultNumSamples,
		Dimensions:   []string{"time", "memory"},
		Compare: CompareConfig{
			Dimension:  "time",
			Threshold:  report.DefaultThreshold,
			Confidence: report.DefaultConfidenceLevel,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Parse decodes YAML over the defaults and validates the result.
// Empty input yields the defaults.
func Parse(data []byte) (*File, error) {
	f := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("parsing yaml: %w", err))
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return f, nil
}

// Validate checks every field against its constraints.
func (f *File) Validate() error {
	if err := configValidate.Struct(f); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// DimensionList resolves the configured dimension names.
func (f *File) DimensionList() (dimension.List, error) {
	return dimension.Lookup(f.Dimensions...)
}

// RunOptions converts the sampling settings to runner options.
func (f *File) RunOptions() []runner.Option {
	return []runner.Option{
		runner.WithOpsPerSample(f.OpsPerSample),
		runner.WithNumSamples(f.NumSamples),
	}
}

// CompareOptions converts the comparison settings to report options.
func (f *File) CompareOptions() []report.CompareOption {
	return []report.CompareOption{
		report.WithThreshold(f.Compare.Threshold),
		report.WithConfidenceLevel(f.Compare.Confidence),
	}
}
