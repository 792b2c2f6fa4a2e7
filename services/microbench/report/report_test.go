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
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type lines struct {
	rows [][]string
}

func (l *lines) sink(columns ...string) {
	l.rows = append(l.rows, columns)
}

func (l *lines) joined() []string {
	out := make([]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = strings.Join(r, " ")
	}
	return out
}

func bench(name string, async bool, timeSamples, memorySamples []float64) runner.BenchmarkResult {
	return runner.BenchmarkResult{
		Name:           name,
		IsAsynchronous: async,
		OpsPerSample:   1000,
		NumSamples:     len(timeSamples),
		Samples:        map[string][]float64{"time": timeSamples, "memory": memorySamples},
	}
}

func suiteAt(start time.Time, results ...runner.BenchmarkResult) *runner.SuiteResult {
	return &runner.SuiteResult{
		Name:           "suite",
		StartTime:      start,
		DimensionNames: []string{"time", "memory"},
		Units:          map[string]string{"time": "ns", "memory": "b"},
		Results:        results,
	}
}

var (
	steady = []float64{100, 101, 99, 100, 100}
	double = []float64{200, 201, 199, 200, 200}
	noisy  = []float64{100, 140, 60, 120, 80}
)

// -----------------------------------------------------------------------------
// Format
// -----------------------------------------------------------------------------

func TestFormatLeft(t *testing.T) {
	assert.Equal(t, "betty   ", FormatLeft("betty", 8))
	assert.Equal(t, "123", FormatLeft(123, 3))
	assert.Equal(t, "****", FormatLeft("betty", 4))
	assert.Equal(t, "betty", FormatLeft("betty", 5))
	assert.Equal(t, "", FormatLeft("x", 0))
}

func TestFormatRight(t *testing.T) {
	assert.Equal(t, "   betty", FormatRight("betty", 8))
	assert.Equal(t, "123", FormatRight(123, 3))
	assert.Equal(t, "****", FormatRight("betty", 4))
	assert.Equal(t, "betty", FormatRight("betty", 5))
}

func TestFormat_CountsRunes(t *testing.T) {
	assert.Equal(t, " ±", FormatRight(" ±", 2))
	assert.Equal(t, "é ", FormatLeft("é", 2))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	WriterSink(&buf)("a", "b", "c")
	assert.Equal(t, "a b c\n", buf.String())
}

// -----------------------------------------------------------------------------
// Statistics
// -----------------------------------------------------------------------------

func TestTTest(t *testing.T) {
	t.Run("identical samples are not different", func(t *testing.T) {
		r := TTest(noisy, noisy, 0.95)
		assert.InDelta(t, 1.0, r.ProbabilityLevel, 1e-9)
		assert.Equal(t, 0.0, r.MeanDifference)
	})

	t.Run("clearly different samples", func(t *testing.T) {
		r := TTest(steady, double, 0.95)
		assert.Less(t, r.ProbabilityLevel, 0.001)
		assert.InDelta(t, 100, r.MeanDifference, 1e-9)
		assert.InDelta(t, 8, r.DegreesOfFreedom, 1e-9)
		// t(0.975, 8) = 2.306, standard error sqrt(0.2)
		half := 2.306004 * math.Sqrt(0.2)
		assert.InDelta(t, 100-half, r.ConfidenceInterval[0], 1e-4)
		assert.InDelta(t, 100+half, r.ConfidenceInterval[1], 1e-4)
	})

	t.Run("difference sign follows candidate minus baseline", func(t *testing.T) {
		r := TTest(double, steady, 0.95)
		assert.InDelta(t, -100, r.MeanDifference, 1e-9)
	})

	t.Run("noisy overlap is insignificant", func(t *testing.T) {
		r := TTest(noisy, []float64{105, 135, 65, 115, 85}, 0.95)
		assert.Greater(t, r.ProbabilityLevel, 0.05)
	})

	t.Run("fewer than two samples", func(t *testing.T) {
		r := TTest([]float64{1}, []float64{5, 6}, 0.95)
		assert.Equal(t, 1.0, r.ProbabilityLevel)
		assert.Equal(t, [2]float64{4.5, 4.5}, r.ConfidenceInterval)

		r = TTest(nil, nil, 0.95)
		assert.Equal(t, 1.0, r.ProbabilityLevel)
		assert.Equal(t, 0.0, r.MeanDifference)
	})

	t.Run("zero variance", func(t *testing.T) {
		assert.Equal(t, 1.0, TTest([]float64{3, 3}, []float64{3, 3}, 0.95).ProbabilityLevel)
		assert.Equal(t, 0.0, TTest([]float64{3, 3}, []float64{4, 4}, 0.95).ProbabilityLevel)
	})
}

func TestMarginOfError(t *testing.T) {
	// mean 5, population sd 2, n 8, t(0.975, 7) = 2.364624
	samples := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 33.441, MarginOfError(samples), 0.01)

	assert.Equal(t, 0.0, MarginOfError(nil))
	assert.Equal(t, 0.0, MarginOfError([]float64{7}))
	assert.Equal(t, 0.0, MarginOfError([]float64{5, 5, 5}))
	assert.Equal(t, 0.0, MarginOfError([]float64{-1, 1}), "zero mean")
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3.0, roundHalfUp(2.5))
	assert.Equal(t, -2.0, roundHalfUp(-2.5))
	assert.Equal(t, "0", formatInt(-0.2))
}

// -----------------------------------------------------------------------------
// Compare
// -----------------------------------------------------------------------------

func TestCompare_AllInsignificant(t *testing.T) {
	now := time.Now()
	a := suiteAt(now, bench("one", false, noisy, noisy), bench("two", true, steady, steady))
	b := suiteAt(now.Add(time.Minute), bench("one", false, noisy, noisy), bench("two", true, steady, steady))

	var out lines
	rows, err := CompareResults(a, b, out.sink)
	require.NoError(t, err)

	require.Len(t, out.rows, 3)
	assert.Equal(t, []string{"A", FormatLeft("Benchmark", 40), "       Time", FormatRight("Change", 12)}, out.rows[0])
	assert.Equal(t, []string{"-", strings.Repeat("-", 40), strings.Repeat("-", 11), strings.Repeat("-", 12)}, out.rows[1])
	assert.Equal(t, []string{"  2 benchmarks not different (p > 0.05)"}, out.rows[2])

	require.Len(t, rows, 2)
	assert.False(t, rows[0].Significant)
	assert.False(t, rows[1].Significant)
}

func TestCompare_Significant(t *testing.T) {
	now := time.Now()
	before := suiteAt(now, bench("doubled", true, steady, steady), bench("same", false, noisy, noisy))
	after := suiteAt(now.Add(time.Second), bench("doubled", true, double, steady), bench("same", false, noisy, noisy))

	var out lines
	rows, err := Compare(after, before, "time", out.sink)
	require.NoError(t, err)

	require.Len(t, out.rows, 4)
	assert.Equal(t, []string{
		"*",
		FormatLeft("doubled", 40),
		"     100 ns",
		"  100% ±  1%",
	}, out.rows[2], "baseline is the earlier run regardless of argument order")
	assert.Equal(t, "  1 benchmarks not different (p > 0.05)", out.rows[3][0])

	require.Len(t, rows, 2)
	assert.True(t, rows[0].Significant)
	assert.Equal(t, 100.0, rows[0].ChangePercent)
	assert.Equal(t, 1.0, rows[0].MarginPercent)
}

func TestCompare_Memory(t *testing.T) {
	now := time.Now()
	a := suiteAt(now, bench("alloc", false, steady, steady))
	b := suiteAt(now.Add(time.Second), bench("alloc", false, steady, double))

	var out lines
	_, err := CompareMemoryResults(a, b, out.sink)
	require.NoError(t, err)

	require.Len(t, out.rows, 3)
	assert.Equal(t, "    Memory", out.rows[0][2][2:], "memory column is 10 + len(\" b\") wide")
	assert.Len(t, []rune(out.rows[0][2]), 12)
	assert.Equal(t, "       100 b", out.rows[2][2])
}

func TestCompare_Options(t *testing.T) {
	now := time.Now()
	// mean difference 30, standard error 20, t = 1.5 on 8 df, p ~ 0.17
	shifted := []float64{130, 170, 90, 150, 110}
	a := suiteAt(now, bench("x", false, noisy, noisy))
	b := suiteAt(now.Add(time.Second), bench("x", false, shifted, noisy))

	var out lines
	_, err := CompareTimeResults(a, b, out.sink, WithThreshold(0.5), WithConfidenceLevel(0.99))
	require.NoError(t, err)
	require.Len(t, out.rows, 3)
	assert.Equal(t, FormatLeft("x", 40), out.rows[2][1])

	out = lines{}
	_, err = CompareTimeResults(a, b, out.sink, WithThreshold(0.125))
	require.NoError(t, err)
	assert.Equal(t, "  1 benchmarks not different (p > 0.125)", out.joined()[2])

	out = lines{}
	_, err = CompareTimeResults(a, b, out.sink, WithThreshold(5), WithConfidenceLevel(-1))
	require.NoError(t, err)
	assert.Equal(t, "  1 benchmarks not different (p > 0.05)", out.joined()[2], "out-of-range options are ignored")
}

func TestCompare_Overflow(t *testing.T) {
	now := time.Now()
	long := strings.Repeat("n", 41)
	a := suiteAt(now, bench(long, false, steady, steady))
	b := suiteAt(now.Add(time.Second), bench(long, false, double, steady))

	var out lines
	_, err := Compare(a, b, "time", out.sink)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("*", 40), out.rows[2][1])
}

func TestCompare_MismatchedRuns(t *testing.T) {
	now := time.Now()
	a := suiteAt(now, bench("x", false, noisy, noisy), bench("y", false, noisy, noisy))
	b := suiteAt(now.Add(time.Second), bench("z", false, noisy, noisy))

	var out lines
	rows, err := Compare(a, b, "time", out.sink)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "pairs are matched by index up to the shorter run")
}

func TestCompare_Errors(t *testing.T) {
	now := time.Now()
	a := suiteAt(now)
	b := suiteAt(now)
	b.DimensionNames = []string{"time"}

	var out lines
	_, err := Compare(a, b, "memory", out.sink)
	assert.ErrorIs(t, err, ErrUnknownDimension)
	assert.Empty(t, out.rows)

	_, err = Compare(nil, b, "time", out.sink)
	assert.ErrorIs(t, err, ErrNilResult)
}

// -----------------------------------------------------------------------------
// Report
// -----------------------------------------------------------------------------

func TestReportResult(t *testing.T) {
	result := suiteAt(time.Now(),
		bench("steady", false, steady, []float64{64, 64, 64, 64, 64}),
		bench("async", true, double, []float64{0, 0, 0, 0, 0}),
	)

	var out lines
	require.NoError(t, ReportResult(result, out.sink))

	require.Len(t, out.rows, 4)
	assert.Equal(t, []string{"A", FormatLeft("Benchmark", 40), FormatRight("Time", 17), FormatRight("Memory", 18)}, out.rows[0])
	assert.Equal(t, strings.Repeat("-", 17), out.rows[1][2])

	assert.Equal(t, []string{" ", FormatLeft("steady", 40), "     100 ns ±  1%", "        64 b ±  0%"}, out.rows[2])
	assert.Equal(t, "*", out.rows[3][0])
	assert.Equal(t, "     200 ns ±  0%", out.rows[3][2])
}

func TestReport_Dimensions(t *testing.T) {
	result := suiteAt(time.Now(), bench("b", false, steady, steady))

	var out lines
	require.NoError(t, Report(result, out.sink, "time"))
	assert.Len(t, out.rows[0], 3)

	out = lines{}
	require.NoError(t, Report(result, out.sink))
	assert.Len(t, out.rows[0], 4, "defaults to every measured dimension")

	assert.ErrorIs(t, Report(result, out.sink, "cpu"), ErrUnknownDimension)
	assert.ErrorIs(t, Report(nil, out.sink), ErrNilResult)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Time", Title("time"))
	assert.Equal(t, "Heap bytes", Title("heap_bytes"))
	assert.Equal(t, "", Title(""))
}
