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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/AleutianAI/AleutianBench/services/microbench/telemetry"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrOTelInitFailed is returned when instrument creation fails.
	ErrOTelInitFailed = errors.New("opentelemetry initialization failed")

	// ErrInvalidOTelConfig is returned when the OTel configuration is invalid.
	ErrInvalidOTelConfig = errors.New("invalid opentelemetry configuration")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// OTelConfig configures the OpenTelemetry sink.
type OTelConfig struct {
	// ServiceVersion is reported as the instrumentation version. Optional.
	ServiceVersion string

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider
}

// DefaultOTelConfig returns a configuration using the global provider.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{ServiceVersion: "1.0.0"}
}

// -----------------------------------------------------------------------------
// OpenTelemetry Sink
// -----------------------------------------------------------------------------

// OTelSink records benchmark telemetry with OpenTelemetry metric instruments.
//
// Description:
//
//	The sink does not own the meter provider. Flush and Close leave the
//	provider alone; the caller shuts it down.
//
// Thread Safety: Safe for concurrent use.
type OTelSink struct {
	meter metric.Meter

	sampleValue   metric.Float64Histogram
	samples       metric.Int64Counter
	suiteDuration metric.Float64Histogram
	comparisons   metric.Int64Counter
	errorsTotal   metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewOTelSink creates an OpenTelemetry sink.
//
// Outputs:
//   - *OTelSink: The created sink. Never nil on success.
//   - error: Wraps ErrInvalidOTelConfig or ErrOTelInitFailed.
func NewOTelSink(config *OTelConfig) (*OTelSink, error) {
	if config == nil {
		return nil, ErrInvalidOTelConfig
	}
	mp := config.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	s := &OTelSink{
		meter: mp.Meter(instrumentationName, metric.WithInstrumentationVersion(config.ServiceVersion)),
	}
	if err := s.initializeMetrics(); err != nil {
		return nil, errors.Join(ErrOTelInitFailed, err)
	}
	return s, nil
}

func (s *OTelSink) initializeMetrics() error {
	var err error

	s.sampleValue, err = s.meter.Float64Histogram(
		"microbench.sample.value",
		metric.WithDescription("Per-operation sample values by dimension"),
	)
	if err != nil {
		return err
	}

	s.samples, err = s.meter.Int64Counter(
		"microbench.samples",
		metric.WithDescription("Total samples recorded"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return err
	}

	s.suiteDuration, err = s.meter.Float64Histogram(
		"microbench.suite.duration",
		metric.WithDescription("Suite run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.comparisons, err = s.meter.Int64Counter(
		"microbench.comparisons",
		metric.WithDescription("Total benchmarks compared"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return err
	}

	s.errorsTotal, err = s.meter.Int64Counter(
		"microbench.errors",
		metric.WithDescription("Total fatal run errors"),
		metric.WithUnit("{error}"),
	)
	return err
}

func (s *OTelSink) open(ctx context.Context, nilData bool) error {
	if err := checkArgs(ctx, nilData); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// RecordBenchmark records every sample of every dimension.
func (s *OTelSink) RecordBenchmark(ctx context.Context, data *BenchmarkData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}

	base := []attribute.KeyValue{
		attribute.String("suite", data.Suite),
		attribute.String("benchmark", data.Name),
		attribute.Bool("async", data.Asynchronous),
	}
	var count int
	for _, d := range data.Dimensions {
		attrs := metric.WithAttributes(append(base[:len(base):len(base)],
			attribute.String("dimension", d.Name),
			attribute.String("units", d.Units),
		)...)
		for _, v := range d.Samples {
			s.sampleValue.Record(ctx, v, attrs)
		}
		count = max(count, len(d.Samples))
	}
	s.samples.Add(ctx, int64(count), metric.WithAttributes(base...))
	return nil
}

// RecordSuite records the suite duration.
func (s *OTelSink) RecordSuite(ctx context.Context, data *SuiteData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	s.suiteDuration.Record(ctx, data.Duration.Seconds(), metric.WithAttributes(
		attribute.String("suite", data.Name),
		attribute.Int("benchmarks", data.Benchmarks),
	))
	return nil
}

// RecordComparison counts one compared benchmark.
func (s *OTelSink) RecordComparison(ctx context.Context, data *ComparisonData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	s.comparisons.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dimension", data.Dimension),
		attribute.Bool("significant", data.Significant),
	))
	return nil
}

// RecordError counts one fatal error.
func (s *OTelSink) RecordError(ctx context.Context, data *ErrorData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	s.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("suite", data.Suite),
		attribute.String("phase", data.Phase),
		attribute.String("error_type", data.ErrorType),
	))
	return nil
}

// Flush is a no-op; export is driven by the provider's readers.
func (s *OTelSink) Flush(ctx context.Context) error {
	return s.open(ctx, false)
}

// Close marks the sink closed. Idempotent.
func (s *OTelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface compliance at compile time.
var _ Sink = (*OTelSink)(nil)
