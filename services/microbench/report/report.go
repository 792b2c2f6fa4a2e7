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
	"fmt"

	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

// ReportResult prints the mean time and memory of every benchmark in a run,
// each with its margin of error.
func ReportResult(result *runner.SuiteResult, sink LineSink) error {
	return Report(result, sink, "time", "memory")
}

// Report prints one row per benchmark with a "mean units ±moe%" column per
// requested dimension.
//
// Description:
//
//	Means and margins are rounded half up. With no dimensions given, every
//	dimension of the run is reported in measurement order.
//
// Outputs:
//   - error: ErrNilResult, or a wrapped ErrUnknownDimension when the run
//     did not measure a requested dimension.
func Report(result *runner.SuiteResult, sink LineSink, dims ...string) error {
	if result == nil {
		return ErrNilResult
	}
	if len(dims) == 0 {
		dims = result.DimensionNames
	}
	for _, dim := range dims {
		if !result.HasDimension(dim) {
			return fmt.Errorf("%w: %q not measured in run %q", ErrUnknownDimension, dim, result.Name)
		}
	}

	units := make([]string, len(dims))
	sizes := make([]int, len(dims))
	for i, dim := range dims {
		units[i] = " " + result.Units[dim]
		sizes[i] = valueWidth(dim) + width(units[i]) + width(marginPrefix) + marginSize + width(percentUnits)
	}

	header := []string{FormatLeft("A", asyncColumnSize), FormatLeft("Benchmark", benchmarkColumnSize)}
	separator := []string{rule(asyncColumnSize), rule(benchmarkColumnSize)}
	for i, dim := range dims {
		header = append(header, FormatRight(Title(dim), sizes[i]))
		separator = append(separator, rule(sizes[i]))
	}
	sink(header...)
	sink(separator...)

	for _, r := range result.Results {
		row := []string{
			FormatLeft(asyncMarker(r.IsAsynchronous), asyncColumnSize),
			FormatLeft(r.Name, benchmarkColumnSize),
		}
		for i, dim := range dims {
			samples := r.Samples[dim]
			row = append(row,
				FormatRight(formatInt(mean(samples)), valueWidth(dim))+units[i]+
					marginPrefix+
					FormatRight(formatInt(MarginOfError(samples)), marginSize)+percentUnits,
			)
		}
		sink(row...)
	}
	return nil
}
