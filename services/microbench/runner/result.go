// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"slices"
	"time"
)

// BenchmarkResult holds the samples of one benchmark.
//
// Samples maps each dimension name of the run to its per-operation sample
// sequence. No sequence is longer than NumSamples.
type BenchmarkResult struct {
	Name           string
	IsAsynchronous bool
	OpsPerSample   int
	NumSamples     int
	Samples        map[string][]float64
}

// SuiteResult is the outcome of one suite run.
//
// Thread Safety: Owned by the run until it is returned from Wait;
// immutable afterwards.
type SuiteResult struct {
	// Name is the suite name.
	Name string

	// RunID uniquely identifies the run.
	RunID string

	// StartTime is captured when the run is started.
	StartTime time.Time

	// DimensionNames lists the dimensions in measurement order.
	DimensionNames []string

	// Units maps each dimension name to its unit suffix.
	Units map[string]string

	// Results holds one entry per benchmark, in flattened suite order.
	Results []BenchmarkResult
}

// Find returns the result of the named benchmark.
func (s *SuiteResult) Find(name string) (*BenchmarkResult, bool) {
	for i := range s.Results {
		if s.Results[i].Name == name {
			return &s.Results[i], true
		}
	}
	return nil, false
}

// HasDimension reports whether the run measured the named dimension.
func (s *SuiteResult) HasDimension(name string) bool {
	return slices.Contains(s.DimensionNames, name)
}
