// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results reads and writes suite results as JSON files.
//
// The file layout is:
//
//	{
//	  "name": "maps",
//	  "runId": "6f1c...",
//	  "startTime": 1760400000000,
//	  "dimensions": ["time", "memory"],
//	  "units": {"time": "ns", "memory": "b"},
//	  "host": {"cpuModel": "...", "logicalCpus": 8, ...},
//	  "results": [
//	    {"name": "get", "isAsynchronous": false, "opsPerSample": 1000,
//	     "numSamples": 100, "samples": {"time": [12, 11], "memory": [0, 0]}}
//	  ]
//	}
//
// startTime is in Unix milliseconds.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

// ErrInvalidFile indicates a result file that does not describe a valid run.
var ErrInvalidFile = errors.New("invalid result file")

var validate = validator.New(validator.WithRequiredStructEnabled())

// File is the on-disk form of a suite result.
type File struct {
	Name       string            `json:"name" validate:"required"`
	RunID      string            `json:"runId,omitempty"`
	StartTime  int64             `json:"startTime" validate:"gte=0"`
	Dimensions []string          `json:"dimensions" validate:"unique,dive,required"`
	Units      map[string]string `json:"units,omitempty"`
	Host       *Host             `json:"host,omitempty"`
	Results    []Entry           `json:"results" validate:"dive"`
}

// Entry is the on-disk form of one benchmark result.
type Entry struct {
	Name           string               `json:"name" validate:"required"`
	IsAsynchronous bool                 `json:"isAsynchronous"`
	OpsPerSample   int                  `json:"opsPerSample" validate:"gte=1"`
	NumSamples     int                  `json:"numSamples" validate:"gte=1"`
	Samples        map[string][]float64 `json:"samples"`
}

// Encode converts a suite result to its file form. host may be nil.
func Encode(result *runner.SuiteResult, host *Host) *File {
	f := &File{
		Name:       result.Name,
		RunID:      result.RunID,
		StartTime:  unixMilli(result.StartTime),
		Dimensions: result.DimensionNames,
		Units:      result.Units,
		Host:       host,
		Results:    make([]Entry, len(result.Results)),
	}
	if f.Dimensions == nil {
		f.Dimensions = []string{}
	}
	for i, r := range result.Results {
		f.Results[i] = Entry{
			Name:           r.Name,
			IsAsynchronous: r.IsAsynchronous,
			OpsPerSample:   r.OpsPerSample,
			NumSamples:     r.NumSamples,
			Samples:        r.Samples,
		}
	}
	return f
}

// unixMilli maps the zero time to 0 so unstarted runs stay valid.
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// SuiteResult converts the file form back to a suite result.
func (f *File) SuiteResult() *runner.SuiteResult {
	result := &runner.SuiteResult{
		Name:           f.Name,
		RunID:          f.RunID,
		StartTime:      fromUnixMilli(f.StartTime),
		DimensionNames: f.Dimensions,
		Units:          f.Units,
		Results:        make([]runner.BenchmarkResult, len(f.Results)),
	}
	if result.Units == nil {
		result.Units = make(map[string]string)
	}
	for i, e := range f.Results {
		result.Results[i] = runner.BenchmarkResult{
			Name:           e.Name,
			IsAsynchronous: e.IsAsynchronous,
			OpsPerSample:   e.OpsPerSample,
			NumSamples:     e.NumSamples,
			Samples:        e.Samples,
		}
	}
	return result
}

// Validate checks the struct tags and the sample invariants: every sample
// key is a declared dimension and no sequence exceeds numSamples.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return errors.Join(ErrInvalidFile, err)
	}
	declared := make(map[string]struct{}, len(f.Dimensions))
	for _, d := range f.Dimensions {
		declared[d] = struct{}{}
	}
	var errs []error
	for _, e := range f.Results {
		for dim, samples := range e.Samples {
			if _, ok := declared[dim]; !ok {
				errs = append(errs, fmt.Errorf("benchmark %q: undeclared dimension %q", e.Name, dim))
			}
			if len(samples) > e.NumSamples {
				errs = append(errs, fmt.Errorf("benchmark %q: %d %s samples exceed numSamples %d", e.Name, len(samples), dim, e.NumSamples))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidFile}, errs...)...)
	}
	return nil
}

// Save writes result as indented JSON.
func Save(w io.Writer, result *runner.SuiteResult, host *Host) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(result, host)); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// Decode reads and validates a result file.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Join(ErrInvalidFile, fmt.Errorf("decoding result: %w", err))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads a suite result.
func Load(r io.Reader) (*runner.SuiteResult, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return f.SuiteResult(), nil
}

// SaveFile writes result to path, creating parent directories.
func SaveFile(path string, result *runner.SuiteResult, host *Host) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return Save(fh, result, host)
}

// LoadFile reads the result file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, nil
}
