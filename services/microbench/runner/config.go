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
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
	"github.com/AleutianAI/AleutianBench/services/microbench/telemetry"
)

const tracerName = "microbench.runner"

const (
	// DefaultOpsPerSample is the number of body invocations per sample.
	DefaultOpsPerSample = 1000

	// DefaultNumSamples is the number of samples per benchmark.
	DefaultNumSamples = 100
)

// ErrInvalidConfig indicates a run configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid run configuration")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config holds the settings of one suite run.
//
// Thread Safety: Not safe for concurrent modification. Each run copies the
// options it was started with.
type Config struct {
	// OpsPerSample is the number of body invocations per sample. Each
	// recorded measurement is divided by it. Must be positive.
	OpsPerSample int

	// NumSamples is the number of samples recorded per benchmark. Must be
	// positive.
	NumSamples int

	// Yield is called between scheduler steps. Nil disables yielding.
	Yield func()

	// Stabilizer settles the allocator before each sample. Nil declares
	// stabilization unavailable.
	Stabilizer sampler.Stabilizer

	// Logger receives run lifecycle logs. Must not be nil.
	Logger *slog.Logger

	// Sink receives telemetry after each benchmark and at suite end.
	// Must not be nil.
	Sink telemetry.Sink

	// Tracer creates the run and per-benchmark spans. Must not be nil.
	Tracer trace.Tracer
}

// DefaultConfig returns the canonical run configuration.
//
// Outputs:
//   - *Config: 1000 ops per sample, 100 samples, runtime.Gosched between
//     steps, runtime.GC before each sample, slog.Default(), a no-op sink
//     and the global tracer.
func DefaultConfig() *Config {
	return &Config{
		OpsPerSample: DefaultOpsPerSample,
		NumSamples:   DefaultNumSamples,
		Yield:        runtime.Gosched,
		Stabilizer:   runtime.GC,
		Logger:       slog.Default(),
		Sink:         telemetry.NewNoOpSink(),
		Tracer:       otel.Tracer(tracerName),
	}
}

// Validate checks the configuration.
//
// Outputs:
//   - error: Wraps ErrInvalidConfig and names every failing field.
func (c *Config) Validate() error {
	var errs []error
	if c.OpsPerSample < 1 {
		errs = append(errs, fmt.Errorf("ops per sample must be positive, got %d", c.OpsPerSample))
	}
	if c.NumSamples < 1 {
		errs = append(errs, fmt.Errorf("num samples must be positive, got %d", c.NumSamples))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger must not be nil"))
	}
	if c.Sink == nil {
		errs = append(errs, errors.New("sink must not be nil"))
	}
	if c.Tracer == nil {
		errs = append(errs, errors.New("tracer must not be nil"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Option configures a run. Options are applied in order, so later options
// override earlier ones.
type Option func(*Config)

// WithOpsPerSample sets the number of body invocations per sample.
//
// The value is not clamped; a non-positive value fails validation.
//
// Example:
//
//	runner.Benchmark(ctx, "maps", suite, dims, runner.WithOpsPerSample(10))
func WithOpsPerSample(n int) Option {
	return func(c *Config) {
		c.OpsPerSample = n
	}
}

// WithNumSamples sets the number of samples per benchmark.
//
// The value is not clamped; a non-positive value fails validation.
func WithNumSamples(n int) Option {
	return func(c *Config) {
		c.NumSamples = n
	}
}

// WithYield sets the hook called between scheduler steps.
func WithYield(fn func()) Option {
	return func(c *Config) {
		c.Yield = fn
	}
}

// WithStabilizer sets the allocator stabilization hook. Passing nil makes
// stabilization-dependent dimensions read 0.
func WithStabilizer(fn sampler.Stabilizer) Option {
	return func(c *Config) {
		c.Stabilizer = fn
	}
}

// WithLogger sets the run logger. Nil values are ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithSink sets the telemetry sink. Nil values are ignored.
func WithSink(sink telemetry.Sink) Option {
	return func(c *Config) {
		if sink != nil {
			c.Sink = sink
		}
	}
}

// WithTracer sets the tracer. Nil values are ignored.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		if tracer != nil {
			c.Tracer = tracer
		}
	}
}
