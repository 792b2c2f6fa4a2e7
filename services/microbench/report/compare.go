// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianBench/services/microbench/dimension"
	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

const (
	// DefaultThreshold is the p-value above which a difference is ignored.
	DefaultThreshold = 0.05

	// DefaultConfidenceLevel is the confidence level of reported intervals.
	DefaultConfidenceLevel = 0.95
)

// Column sizes, in runes.
const (
	asyncColumnSize     = 1
	benchmarkColumnSize = 40
	valueSize           = 8
	wideValueSize       = 10
	changeSize          = 5
	marginSize          = 3
	percentUnits        = "%"
	marginPrefix        = " ±"
)

// ErrUnknownDimension is returned when a result lacks the requested
// dimension.
var ErrUnknownDimension = dimension.ErrUnknownDimension

// ErrNilResult is returned when a result argument is nil.
var ErrNilResult = errors.New("result must not be nil")

// CompareOption configures Compare.
type CompareOption func(*compareConfig)

type compareConfig struct {
	threshold  float64
	confidence float64
	logger     *slog.Logger
}

// WithThreshold sets the significance threshold. Values outside (0, 1) are
// ignored.
func WithThreshold(p float64) CompareOption {
	return func(c *compareConfig) {
		if p > 0 && p < 1 {
			c.threshold = p
		}
	}
}

// WithConfidenceLevel sets the confidence level. Values outside (0, 1) are
// ignored.
func WithConfidenceLevel(level float64) CompareOption {
	return func(c *compareConfig) {
		if level > 0 && level < 1 {
			c.confidence = level
		}
	}
}

// WithLogger sets the logger used for mismatch warnings. Nil is ignored.
func WithLogger(logger *slog.Logger) CompareOption {
	return func(c *compareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Comparison is the analysis of one benchmark across two runs.
type Comparison struct {
	// Name is the benchmark name in the baseline.
	Name string

	// IsAsynchronous is the baseline benchmark's variant.
	IsAsynchronous bool

	// Test is the t-test of candidate against baseline.
	Test TTestResult

	// Significant reports Test.ProbabilityLevel <= threshold.
	Significant bool

	// ChangePercent is the rounded mean difference relative to the
	// baseline mean.
	ChangePercent float64

	// MarginPercent is the rounded interval half-width relative to the
	// mean difference.
	MarginPercent float64
}

// Compare prints the significant differences between two runs in one
// dimension.
//
// Description:
//
//	The run with the earlier StartTime is the baseline regardless of
//	argument order. Benchmarks are matched by index up to the shorter run.
//	Each pair is t-tested; pairs with p above the threshold are counted and
//	summarised in one trailing line, the rest are printed as
//
//	  A | Benchmark | mean difference | change% ±margin%
//
//	where change is the mean difference over the baseline mean and margin
//	is (interval upper bound - mean difference) over the mean difference,
//	both in percent and 0 when the divisor is 0.
//
// Inputs:
//   - a, b: The two runs. Must not be nil.
//   - dim: Dimension to compare. Both runs must have measured it.
//   - sink: Receives header, separator, detail and summary rows.
//   - opts: Threshold (default 0.05) and confidence level (default 0.95).
//
// Outputs:
//   - []Comparison: Every compared pair, significant or not.
//   - error: ErrNilResult or a wrapped ErrUnknownDimension.
func Compare(a, b *runner.SuiteResult, dim string, sink LineSink, opts ...CompareOption) ([]Comparison, error) {
	if a == nil || b == nil {
		return nil, ErrNilResult
	}
	for _, r := range []*runner.SuiteResult{a, b} {
		if !r.HasDimension(dim) {
			return nil, fmt.Errorf("%w: %q not measured in run %q", ErrUnknownDimension, dim, r.Name)
		}
	}

	cfg := compareConfig{
		threshold:  DefaultThreshold,
		confidence: DefaultConfidenceLevel,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	base, test := a, b
	if a.StartTime.After(b.StartTime) {
		base, test = b, a
	}

	units := " " + base.Units[dim]
	valueColumnSize := valueWidth(dim) + width(units)
	changeColumnSize := changeSize + width(percentUnits) + width(marginPrefix) + marginSize + width(percentUnits)

	sink(
		FormatLeft("A", asyncColumnSize),
		FormatLeft("Benchmark", benchmarkColumnSize),
		FormatRight(Title(dim), valueColumnSize),
		FormatRight("Change", changeColumnSize),
	)
	sink(
		rule(asyncColumnSize),
		rule(benchmarkColumnSize),
		rule(valueColumnSize),
		rule(changeColumnSize),
	)

	n := min(len(base.Results), len(test.Results))
	if len(base.Results) != len(test.Results) {
		cfg.logger.Warn("compared runs have different benchmark counts",
			"baseline", len(base.Results), "candidate", len(test.Results))
	}

	out := make([]Comparison, 0, n)
	insignificant := 0
	for i := 0; i < n; i++ {
		br, tr := &base.Results[i], &test.Results[i]
		if br.Name != tr.Name {
			cfg.logger.Warn("compared benchmarks have different names",
				"index", i, "baseline", br.Name, "candidate", tr.Name)
		}

		tt := TTest(br.Samples[dim], tr.Samples[dim], cfg.confidence)
		c := Comparison{
			Name:           br.Name,
			IsAsynchronous: br.IsAsynchronous,
			Test:           tt,
			Significant:    tt.ProbabilityLevel <= cfg.threshold,
			ChangePercent:  roundHalfUp(finiteOrZero(tt.MeanDifference * 100 / mean(br.Samples[dim]))),
			MarginPercent:  roundHalfUp(finiteOrZero((tt.ConfidenceInterval[1] - tt.MeanDifference) * 100 / tt.MeanDifference)),
		}
		out = append(out, c)

		if !c.Significant {
			insignificant++
			continue
		}
		sink(
			FormatLeft(asyncMarker(c.IsAsynchronous), asyncColumnSize),
			FormatLeft(c.Name, benchmarkColumnSize),
			FormatRight(formatInt(tt.MeanDifference), valueWidth(dim))+units,
			FormatRight(formatInt(c.ChangePercent), changeSize)+percentUnits+
				marginPrefix+
				FormatRight(formatInt(c.MarginPercent), marginSize)+percentUnits,
		)
	}

	if insignificant > 0 {
		sink(fmt.Sprintf("  %d benchmarks not different (p > %s)",
			insignificant, strconv.FormatFloat(cfg.threshold, 'f', -1, 64)))
	}
	return out, nil
}

// CompareResults compares the time dimension of two runs.
func CompareResults(baseline, candidate *runner.SuiteResult, sink LineSink, opts ...CompareOption) ([]Comparison, error) {
	return Compare(baseline, candidate, "time", sink, opts...)
}

// CompareTimeResults compares the time dimension of two runs.
func CompareTimeResults(a, b *runner.SuiteResult, sink LineSink, opts ...CompareOption) ([]Comparison, error) {
	return Compare(a, b, "time", sink, opts...)
}

// CompareMemoryResults compares the memory dimension of two runs.
func CompareMemoryResults(a, b *runner.SuiteResult, sink LineSink, opts ...CompareOption) ([]Comparison, error) {
	return Compare(a, b, "memory", sink, opts...)
}

// valueWidth is the numeric width of a dimension's value column. Byte-sized
// dimensions get a wider column.
func valueWidth(dim string) int {
	switch dim {
	case "memory", "rss":
		return wideValueSize
	default:
		return valueSize
	}
}

// Title returns a column header for a dimension name.
func Title(dim string) string {
	if dim == "" {
		return dim
	}
	r := []rune(dim)
	r[0] = unicode.ToUpper(r[0])
	return strings.ReplaceAll(string(r), "_", " ")
}

func asyncMarker(async bool) string {
	if async {
		return "*"
	}
	return ""
}

func formatInt(x float64) string {
	return strconv.FormatFloat(roundHalfUp(x), 'f', 0, 64)
}
