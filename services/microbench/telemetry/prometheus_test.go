// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrometheusSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg
	sink, err := NewPrometheusSink(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink, reg
}

func sampleData() *BenchmarkData {
	return &BenchmarkData{
		Suite:        "strings",
		RunID:        "run-1",
		Name:         "concat",
		OpsPerSample: 1000,
		Duration:     time.Second,
		Dimensions: []DimensionSamples{
			{Name: "time", Units: "ns", Samples: []float64{10, 20, 30}},
			{Name: "memory", Units: "b", Samples: []float64{4, 4, 4}},
		},
	}
}

func TestPrometheusConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultPrometheusConfig().Validate())

	cfg := DefaultPrometheusConfig()
	cfg.Namespace = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultPrometheusConfig()
	cfg.Subsystem = ""
	assert.Error(t, cfg.Validate())

	_, err := NewPrometheusSink(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPrometheusSink(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPrometheusSink_RecordBenchmark(t *testing.T) {
	sink, reg := newTestPrometheusSink(t)
	ctx := context.Background()

	require.NoError(t, sink.RecordBenchmark(ctx, sampleData()))

	assert.Equal(t, 3.0, testutil.ToFloat64(sink.samplesTotal.WithLabelValues("strings", "concat")))
	assert.Equal(t, 20.0, testutil.ToFloat64(sink.benchmarkMean.WithLabelValues("strings", "concat", "time", "ns")))
	assert.Equal(t, 4.0, testutil.ToFloat64(sink.benchmarkMean.WithLabelValues("strings", "concat", "memory", "b")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(sink.opsPerSample.WithLabelValues("strings", "concat")))

	count, err := testutil.GatherAndCount(reg, "aleutian_microbench_sample_value")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one histogram series per dimension")
}

func TestPrometheusSink_SuiteComparisonError(t *testing.T) {
	sink, reg := newTestPrometheusSink(t)
	ctx := context.Background()

	require.NoError(t, sink.RecordSuite(ctx, &SuiteData{Name: "strings", Duration: 2 * time.Second, Benchmarks: 3}))
	require.NoError(t, sink.RecordComparison(ctx, &ComparisonData{Benchmark: "concat", Dimension: "time", PValue: 0.01, Significant: true, ChangePercent: -12}))
	require.NoError(t, sink.RecordError(ctx, &ErrorData{Suite: "strings", Phase: "sample", ErrorType: "user"}))

	assert.Equal(t, 3.0, testutil.ToFloat64(sink.suiteSize.WithLabelValues("strings")))
	assert.Equal(t, -12.0, testutil.ToFloat64(sink.comparisonDiff.WithLabelValues("concat", "time")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.comparisons.WithLabelValues("true")))

	expected := `
# HELP aleutian_microbench_errors_total Total fatal run errors by phase and type
# TYPE aleutian_microbench_errors_total counter
aleutian_microbench_errors_total{error_type="user",phase="sample",suite="strings"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "aleutian_microbench_errors_total"))
}

func TestPrometheusSink_Closed(t *testing.T) {
	sink, reg := newTestPrometheusSink(t)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "Close is idempotent")

	ctx := context.Background()
	assert.ErrorIs(t, sink.RecordBenchmark(ctx, sampleData()), ErrSinkClosed)
	assert.ErrorIs(t, sink.Flush(ctx), ErrSinkClosed)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "collectors are unregistered on Close")
}

func TestPrometheusSink_NilArgs(t *testing.T) {
	sink, _ := newTestPrometheusSink(t)
	assert.ErrorIs(t, sink.RecordBenchmark(context.Background(), nil), ErrNilData)
	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, sink.RecordSuite(nil, &SuiteData{}), ErrNilContext)
}

func TestPrometheusSink_LabelCardinality(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg
	cfg.MaxLabelCardinality = 2
	sink, err := NewPrometheusSink(cfg)
	require.NoError(t, err)

	assert.Equal(t, "a", sink.sanitizeLabel("benchmark", "a"))
	assert.Equal(t, "b", sink.sanitizeLabel("benchmark", "b"))
	assert.Equal(t, "_other", sink.sanitizeLabel("benchmark", "c"))
	assert.Equal(t, "a", sink.sanitizeLabel("benchmark", "a"))
}

func TestPrometheusSink_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultPrometheusConfig()
	cfg.Registry = reg

	_, err := NewPrometheusSink(cfg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(cfg)
	assert.NoError(t, err)
}

// recordingSink counts calls and optionally fails.
type recordingSink struct {
	NoOpSink
	calls  int
	fail   error
	closed bool
}

func (r *recordingSink) RecordBenchmark(ctx context.Context, data *BenchmarkData) error {
	r.calls++
	return r.fail
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestCompositeSink(t *testing.T) {
	_, err := NewCompositeSink()
	assert.ErrorIs(t, err, ErrNoSinks)
	_, err = NewCompositeSink(nil, nil)
	assert.ErrorIs(t, err, ErrNoSinks)

	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{fail: boom}
	composite, err := NewCompositeSink(a, nil, b)
	require.NoError(t, err)

	ctx := context.Background()
	err = composite.RecordBenchmark(ctx, sampleData())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls, "a failing sink does not stop the others")
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, composite.RecordSuite(ctx, &SuiteData{}))
	assert.ErrorIs(t, composite.RecordError(ctx, nil), ErrNilData)

	require.NoError(t, composite.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.ErrorIs(t, composite.Flush(ctx), ErrSinkClosed)
}

func TestNoOpSink(t *testing.T) {
	sink := NewNoOpSink()
	ctx := context.Background()
	assert.NoError(t, sink.RecordBenchmark(ctx, sampleData()))
	assert.NoError(t, sink.RecordComparison(ctx, &ComparisonData{}))
	assert.ErrorIs(t, sink.RecordSuite(ctx, nil), ErrNilData)
	assert.NoError(t, sink.Flush(ctx))
	assert.NoError(t, sink.Close())
}
