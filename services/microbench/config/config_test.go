// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianBench/services/microbench/report"
	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestParse_OverridesDefaults(t *testing.T) {
	f, err := Parse([]byte(`
suite: maps
num_samples: 20
dimensions: [time, allocs]
compare:
  threshold: 0.01
telemetry:
  otlp_endpoint: localhost:4317
logging:
  level: debug
  json: true
`))
	require.NoError(t, err)

	assert.Equal(t, "maps", f.Suite)
	assert.Equal(t, runner.DefaultOpsPerSample, f.OpsPerSample)
	assert.Equal(t, 20, f.NumSamples)
	assert.Equal(t, []string{"time", "allocs"}, f.Dimensions)
	assert.Equal(t, 0.01, f.Compare.Threshold)
	assert.Equal(t, report.DefaultConfidenceLevel, f.Compare.Confidence)
	assert.Equal(t, "time", f.Compare.Dimension)
	assert.Equal(t, "localhost:4317", f.Telemetry.OTLPEndpoint)
	assert.Equal(t, "debug", f.Logging.Level)
	assert.True(t, f.Logging.JSON)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "sample: 3", "field sample not found"},
		{"zero ops", "ops_per_sample: 0", "OpsPerSample"},
		{"negative samples", "num_samples: -1", "NumSamples"},
		{"no dimensions", "dimensions: []", "Dimensions"},
		{"duplicate dimension", "dimensions: [time, time]", "Dimensions"},
		{"unknown dimension", "dimensions: [time, joules]", "dimension"},
		{"threshold out of range", "compare: {threshold: 1.5}", "Threshold"},
		{"bad compare dimension", "compare: {dimension: speed}", "Dimension"},
		{"bad endpoint", "telemetry: {otlp_endpoint: 'not an endpoint'}", "OTLPEndpoint"},
		{"bad level", "logging: {level: loud}", "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_DimensionCaseInsensitive(t *testing.T) {
	f, err := Parse([]byte("dimensions: [Time, MEMORY]"))
	require.NoError(t, err)

	dims, err := f.DimensionList()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "memory"}, dims.Names())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suite: strings\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "strings", f.Suite)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read the config file")
}

func TestRunOptions(t *testing.T) {
	f := Default()
	f.OpsPerSample = 7
	f.NumSamples = 3

	cfg := runner.DefaultConfig()
	for _, opt := range f.RunOptions() {
		opt(cfg)
	}
	assert.Equal(t, 7, cfg.OpsPerSample)
	assert.Equal(t, 3, cfg.NumSamples)
	assert.Len(t, f.CompareOptions(), 2)
}
