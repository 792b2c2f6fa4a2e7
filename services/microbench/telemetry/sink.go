// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports benchmark runs as metrics.
//
// The runner reports each finalized benchmark, each completed suite and each
// fatal error to a Sink. Sinks are only called outside measurement windows,
// so their cost never shows up in samples.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilData is returned when nil data is provided to a recording method.
	ErrNilData = errors.New("data must not be nil")

	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink records benchmark telemetry.
//
// Description:
//
//	Implementations handle one export format each (Prometheus, OTel).
//	Recording methods validate their inputs and fail with ErrSinkClosed
//	after Close.
//
// Thread Safety: All implementations must be safe for concurrent use.
type Sink interface {
	// RecordBenchmark records the samples of one finalized benchmark.
	RecordBenchmark(ctx context.Context, data *BenchmarkData) error

	// RecordSuite records the completion of a suite run.
	RecordSuite(ctx context.Context, data *SuiteData) error

	// RecordComparison records one compared benchmark.
	RecordComparison(ctx context.Context, data *ComparisonData) error

	// RecordError records a fatal run error.
	RecordError(ctx context.Context, data *ErrorData) error

	// Flush exports buffered data.
	Flush(ctx context.Context) error

	// Close releases resources. Idempotent.
	Close() error
}

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// BenchmarkData describes one finalized benchmark.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type BenchmarkData struct {
	// Suite is the suite name.
	Suite string

	// RunID identifies the suite run.
	RunID string

	// Name is the benchmark name.
	Name string

	// Asynchronous reports the benchmark variant.
	Asynchronous bool

	// OpsPerSample is the number of body invocations per sample.
	OpsPerSample int

	// Duration is the wall time spent sampling the benchmark.
	Duration time.Duration

	// Dimensions holds the per-operation samples of each dimension.
	Dimensions []DimensionSamples
}

// DimensionSamples is the sample sequence of one dimension.
type DimensionSamples struct {
	Name    string
	Units   string
	Samples []float64
}

// SuiteData describes a completed suite run.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type SuiteData struct {
	Name       string
	RunID      string
	Duration   time.Duration
	Benchmarks int
}

// ComparisonData describes one benchmark compared between two runs.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type ComparisonData struct {
	// Benchmark is the benchmark name.
	Benchmark string

	// Dimension is the compared dimension.
	Dimension string

	// PValue is the two-tailed p-value of the t-test.
	PValue float64

	// Significant reports whether PValue is at or below the threshold.
	Significant bool

	// ChangePercent is the mean difference relative to the baseline mean.
	ChangePercent float64
}

// ErrorData describes a fatal run error.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type ErrorData struct {
	// Timestamp is when the error occurred.
	Timestamp time.Time

	// Suite is the suite name.
	Suite string

	// RunID identifies the suite run.
	RunID string

	// Benchmark is the failing benchmark, if any.
	Benchmark string

	// Phase is the run phase that failed ("warm_up", "sample").
	Phase string

	// ErrorType categorizes the error ("configuration", "panic", "user",
	// "canceled").
	ErrorType string

	// Message is the error message.
	Message string
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink forwards telemetry to several sinks.
//
// Errors from individual sinks are joined; one sink failing does not stop
// the others from receiving the data.
//
// Thread Safety: Safe for concurrent use.
type CompositeSink struct {
	sinks  []Sink
	mu     sync.RWMutex
	closed bool
}

// NewCompositeSink creates a composite of the non-nil sinks given.
//
// Outputs:
//   - *CompositeSink: The created sink. Never nil on success.
//   - error: ErrNoSinks if no non-nil sink was provided.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

func (c *CompositeSink) each(ctx context.Context, fn func(Sink) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrSinkClosed
	}
	sinks := c.sinks
	c.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordBenchmark forwards to every child sink.
func (c *CompositeSink) RecordBenchmark(ctx context.Context, data *BenchmarkData) error {
	if data == nil {
		return ErrNilData
	}
	return c.each(ctx, func(s Sink) error { return s.RecordBenchmark(ctx, data) })
}

// RecordSuite forwards to every child sink.
func (c *CompositeSink) RecordSuite(ctx context.Context, data *SuiteData) error {
	if data == nil {
		return ErrNilData
	}
	return c.each(ctx, func(s Sink) error { return s.RecordSuite(ctx, data) })
}

// RecordComparison forwards to every child sink.
func (c *CompositeSink) RecordComparison(ctx context.Context, data *ComparisonData) error {
	if data == nil {
		return ErrNilData
	}
	return c.each(ctx, func(s Sink) error { return s.RecordComparison(ctx, data) })
}

// RecordError forwards to every child sink.
func (c *CompositeSink) RecordError(ctx context.Context, data *ErrorData) error {
	if data == nil {
		return ErrNilData
	}
	return c.each(ctx, func(s Sink) error { return s.RecordError(ctx, data) })
}

// Flush flushes every child sink.
func (c *CompositeSink) Flush(ctx context.Context) error {
	return c.each(ctx, func(s Sink) error { return s.Flush(ctx) })
}

// Close closes every child sink. Idempotent.
func (c *CompositeSink) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sinks := c.sinks
	c.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-Op Sink
// -----------------------------------------------------------------------------

// NoOpSink discards all data. It is the runner's default sink.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

func (n *NoOpSink) RecordBenchmark(ctx context.Context, data *BenchmarkData) error {
	return checkArgs(ctx, data == nil)
}

func (n *NoOpSink) RecordSuite(ctx context.Context, data *SuiteData) error {
	return checkArgs(ctx, data == nil)
}

func (n *NoOpSink) RecordComparison(ctx context.Context, data *ComparisonData) error {
	return checkArgs(ctx, data == nil)
}

func (n *NoOpSink) RecordError(ctx context.Context, data *ErrorData) error {
	return checkArgs(ctx, data == nil)
}

func (n *NoOpSink) Flush(ctx context.Context) error {
	return checkArgs(ctx, false)
}

func (n *NoOpSink) Close() error {
	return nil
}

func checkArgs(ctx context.Context, nilData bool) error {
	if ctx == nil {
		return ErrNilContext
	}
	if nilData {
		return ErrNilData
	}
	return nil
}

// Verify interface compliance at compile time.
var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = (*NoOpSink)(nil)
)
