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
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviders_None(t *testing.T) {
	p, err := NewProviders(context.Background(), DefaultProviderConfig())
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviders_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := NewProviders(nil, DefaultProviderConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestNewProviders_UnknownExporter(t *testing.T) {
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = "zipkin"
	_, err := NewProviders(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg = DefaultProviderConfig()
	cfg.MetricExporter = "statsd"
	_, err = NewProviders(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestNewProviders_StdoutTrace(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultProviderConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.Writer = &buf

	p, err := NewProviders(context.Background(), cfg)
	require.NoError(t, err)

	_, span := p.TracerProvider.Tracer("test").Start(context.Background(), "microbench.Run")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "microbench.Run")
	assert.Contains(t, buf.String(), "microbench")
}

func TestNewProviders_PrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultProviderConfig()
	cfg.MetricExporter = ExporterPrometheus
	cfg.Registerer = reg

	p, err := NewProviders(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	sink, err := NewOTelSink(&OTelConfig{MeterProvider: p.MeterProvider})
	require.NoError(t, err)
	require.NoError(t, sink.RecordBenchmark(context.Background(), &BenchmarkData{
		Suite: "maps",
		Name:  "get",
		Dimensions: []DimensionSamples{
			{Name: "time", Units: "ns", Samples: []float64{10, 12}},
		},
	}))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Condition(t, func() bool {
		for _, n := range names {
			if strings.HasPrefix(n, "microbench_samples") {
				return true
			}
		}
		return false
	}, "gathered %v", names)
}

func TestNewProviders_StdoutMetrics(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultProviderConfig()
	cfg.MetricExporter = ExporterStdout
	cfg.Writer = &buf

	p, err := NewProviders(context.Background(), cfg)
	require.NoError(t, err)

	sink, err := NewOTelSink(&OTelConfig{MeterProvider: p.MeterProvider})
	require.NoError(t, err)
	require.NoError(t, sink.RecordError(context.Background(), &ErrorData{Suite: "maps", Phase: "sample"}))
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "microbench.errors")
}
