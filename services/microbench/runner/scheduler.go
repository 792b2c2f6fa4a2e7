// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner sequences a benchmark suite: a warm-up pass followed by
// sample collection for every benchmark in order.
//
// A run is an explicit state machine:
//
//	Idle -> WarmingUp -> (NextBenchmark <-> NextSample)* -> Done
//
// Each transition is one step. The configured Yield hook runs between steps
// so a long suite never monopolizes the scheduler. At most one sample is in
// flight; sample N's tear-down finishes before sample N+1's set-up starts.
//
// Every failure is fatal. The caller receives either the complete
// SuiteResult or the first error, never both.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianBench/services/microbench/dimension"
	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
	"github.com/AleutianAI/AleutianBench/services/microbench/telemetry"
)

// State is a scheduler state.
type State int

const (
	StateIdle State = iota
	StateWarmingUp
	StateNextBenchmark
	StateNextSample
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmingUp:
		return "warming_up"
	case StateNextBenchmark:
		return "next_benchmark"
	case StateNextSample:
		return "next_sample"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// -----------------------------------------------------------------------------
// Run handle
// -----------------------------------------------------------------------------

// Run is an in-flight suite run.
type Run struct {
	// ID uniquely identifies the run.
	ID string

	// StartTime is when StartBenchmarking was called.
	StartTime time.Time

	done   chan struct{}
	result *SuiteResult
	err    error
}

// Done is closed when the run finishes.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes.
//
// Outputs:
//   - *SuiteResult: The complete result. Nil on error.
//   - error: The first failure. User errors, including async rejections,
//     are returned unwrapped.
func (r *Run) Wait() (*SuiteResult, error) {
	<-r.done
	return r.result, r.err
}

// StartBenchmarking starts a suite run and returns immediately.
//
// Description:
//
//	Captures the start time, flattens the suite and runs it on a new
//	goroutine. The context is checked between scheduler steps and bounds
//	asynchronous fan-in waits; cancelling it fails the run.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - name: Suite name, copied into the result.
//   - suite: Benchmarks and groups. Nested groups are flattened in order.
//   - dims: Dimensions to measure, in start order.
//   - opts: Run options.
//
// Outputs:
//   - *Run: The run handle. Never nil.
//
// Example:
//
//	run := runner.StartBenchmarking(ctx, "maps", suite, dimension.List{dimension.Time})
//	result, err := run.Wait()
func StartBenchmarking(ctx context.Context, name string, suite []sampler.Item, dims dimension.List, opts ...Option) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		done:      make(chan struct{}),
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		run.err = fmt.Errorf("validating config: %w", err)
		close(run.done)
		return run
	}

	s := newScheduler(ctx, cfg, run, name, sampler.Flatten(suite...), dims)
	go func() {
		defer close(run.done)
		run.result, run.err = s.run()
	}()
	return run
}

// Benchmark runs a suite to completion. It is the blocking form of
// StartBenchmarking.
func Benchmark(ctx context.Context, name string, suite []sampler.Item, dims dimension.List, opts ...Option) (*SuiteResult, error) {
	return StartBenchmarking(ctx, name, suite, dims, opts...).Wait()
}

// -----------------------------------------------------------------------------
// Scheduler
// -----------------------------------------------------------------------------

type scheduler struct {
	ctx     context.Context
	cfg     *Config
	sampler *sampler.Sampler
	dims    dimension.List
	names   []string
	queue   []sampler.Benchmark
	next    int

	state  State
	result *SuiteResult
	began  time.Time

	// Current benchmark.
	bench    sampler.Benchmark
	current  *BenchmarkResult
	recorded int
	started  time.Time
	span     trace.Span
	runSpan  trace.Span
}

func newScheduler(ctx context.Context, cfg *Config, run *Run, name string, queue []sampler.Benchmark, dims dimension.List) *scheduler {
	return &scheduler{
		ctx:     ctx,
		cfg:     cfg,
		sampler: sampler.New(dims, sampler.WithStabilizer(cfg.Stabilizer)),
		dims:    dims,
		names:   dims.Names(),
		queue:   queue,
		state:   StateIdle,
		result: &SuiteResult{
			Name:           name,
			RunID:          run.ID,
			StartTime:      run.StartTime,
			DimensionNames: dims.Names(),
			Units:          dims.Units(),
			Results:        make([]BenchmarkResult, 0, len(queue)),
		},
	}
}

func (s *scheduler) run() (*SuiteResult, error) {
	ctx, span := s.cfg.Tracer.Start(s.ctx, "microbench.Run",
		trace.WithAttributes(
			attribute.String("microbench.suite", s.result.Name),
			attribute.String("microbench.run_id", s.result.RunID),
			attribute.Int("microbench.benchmarks", len(s.queue)),
			attribute.Int("microbench.ops_per_sample", s.cfg.OpsPerSample),
			attribute.Int("microbench.num_samples", s.cfg.NumSamples),
			attribute.StringSlice("microbench.dimensions", s.names),
		),
	)
	defer span.End()
	s.ctx = ctx
	s.runSpan = span
	s.began = time.Now()

	for s.state != StateDone {
		if err := s.ctx.Err(); err != nil {
			return nil, s.fail("cancel", err)
		}
		if err := s.step(); err != nil {
			return nil, err
		}
		if s.cfg.Yield != nil {
			s.cfg.Yield()
		}
	}

	elapsed := time.Since(s.began)
	span.SetStatus(codes.Ok, "suite completed")
	s.cfg.Logger.Info("benchmark run finished",
		"run_id", s.result.RunID,
		"suite", s.result.Name,
		"benchmarks", len(s.result.Results),
		"duration", elapsed,
	)
	s.record(s.cfg.Sink.RecordSuite(s.ctx, &telemetry.SuiteData{
		Name:       s.result.Name,
		RunID:      s.result.RunID,
		Duration:   elapsed,
		Benchmarks: len(s.result.Results),
	}))
	return s.result, nil
}

// step performs one transition.
func (s *scheduler) step() error {
	switch s.state {
	case StateIdle:
		s.cfg.Logger.Info("benchmark run started",
			"run_id", s.result.RunID,
			"suite", s.result.Name,
			"benchmarks", len(s.queue),
			"dimensions", s.names,
			"ops_per_sample", s.cfg.OpsPerSample,
			"num_samples", s.cfg.NumSamples,
		)
		s.state = StateWarmingUp
		return nil

	case StateWarmingUp:
		if b, err := warmUp(s.ctx, s.queue); err != nil {
			s.bench = b
			return s.fail("warm_up", err)
		}
		s.runSpan.AddEvent("warm-up complete")
		s.state = StateNextBenchmark
		return nil

	case StateNextBenchmark:
		return s.nextBenchmark()

	case StateNextSample:
		return s.nextSample()
	}
	return nil
}

func (s *scheduler) nextBenchmark() error {
	if s.next >= len(s.queue) {
		s.bench = nil
		s.state = StateDone
		return nil
	}
	b := s.queue[s.next]
	s.next++
	s.bench = b

	if b.BenchmarkName() == "" {
		return s.fail("validate", fmt.Errorf("%w: benchmark %d of suite %q", sampler.ErrMissingName, s.next, s.result.Name))
	}

	samples := make(map[string][]float64, len(s.dims))
	for _, name := range s.names {
		samples[name] = make([]float64, 0, s.cfg.NumSamples)
	}
	s.current = &BenchmarkResult{
		Name:           b.BenchmarkName(),
		IsAsynchronous: b.IsAsynchronous(),
		OpsPerSample:   s.cfg.OpsPerSample,
		NumSamples:     s.cfg.NumSamples,
		Samples:        samples,
	}
	s.recorded = 0
	s.started = time.Now()
	_, s.span = s.cfg.Tracer.Start(s.ctx, "microbench.Benchmark",
		trace.WithAttributes(
			attribute.String("microbench.benchmark", b.BenchmarkName()),
			attribute.Bool("microbench.async", b.IsAsynchronous()),
		),
	)
	s.state = StateNextSample
	return nil
}

func (s *scheduler) nextSample() error {
	if s.recorded >= s.cfg.NumSamples {
		s.finalize()
		s.state = StateNextBenchmark
		return nil
	}

	ending, err := s.sampler.Collect(s.ctx, s.bench, s.cfg.OpsPerSample)
	if err != nil {
		return s.fail("sample", err)
	}
	ops := float64(s.cfg.OpsPerSample)
	for i, m := range ending {
		name := s.names[i]
		s.current.Samples[name] = append(s.current.Samples[name], roundHalfUp(m/ops))
	}
	s.recorded++
	return nil
}

func (s *scheduler) finalize() {
	elapsed := time.Since(s.started)
	s.result.Results = append(s.result.Results, *s.current)

	s.span.SetAttributes(attribute.Int("microbench.samples", s.recorded))
	s.span.SetStatus(codes.Ok, "benchmark completed")
	s.span.End()
	s.span = nil

	s.cfg.Logger.Debug("benchmark finished",
		"run_id", s.result.RunID,
		"suite", s.result.Name,
		"benchmark", s.current.Name,
		"samples", s.recorded,
		"duration", elapsed,
	)

	data := &telemetry.BenchmarkData{
		Suite:        s.result.Name,
		RunID:        s.result.RunID,
		Name:         s.current.Name,
		Asynchronous: s.current.IsAsynchronous,
		OpsPerSample: s.current.OpsPerSample,
		Duration:     elapsed,
		Dimensions:   make([]telemetry.DimensionSamples, len(s.dims)),
	}
	for i, d := range s.dims {
		data.Dimensions[i] = telemetry.DimensionSamples{
			Name:    d.Name(),
			Units:   d.Units(),
			Samples: s.current.Samples[d.Name()],
		}
	}
	s.record(s.cfg.Sink.RecordBenchmark(s.ctx, data))
	s.current = nil
}

// fail reports err and returns it unchanged.
func (s *scheduler) fail(phase string, err error) error {
	name := ""
	if s.bench != nil {
		name = s.bench.BenchmarkName()
	}
	for _, span := range []trace.Span{s.span, s.runSpan} {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, phase+" failed")
		}
	}
	if s.span != nil {
		s.span.End()
		s.span = nil
	}

	s.cfg.Logger.Error("benchmark run failed",
		"run_id", s.result.RunID,
		"suite", s.result.Name,
		"benchmark", name,
		"phase", phase,
		"error", err,
	)
	s.record(s.cfg.Sink.RecordError(context.WithoutCancel(s.ctx), &telemetry.ErrorData{
		Timestamp: time.Now(),
		Suite:     s.result.Name,
		RunID:     s.result.RunID,
		Benchmark: name,
		Phase:     phase,
		ErrorType: classify(err),
		Message:   err.Error(),
	}))
	s.state = StateDone
	return err
}

func (s *scheduler) record(err error) {
	if err != nil {
		s.cfg.Logger.Warn("recording telemetry", "run_id", s.result.RunID, "error", err)
	}
}

// classify maps an error to a telemetry error type.
func classify(err error) string {
	var (
		panicErr *sampler.PanicError
		probeErr *dimension.ProbeError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &panicErr):
		return "panic"
	case errors.As(err, &probeErr),
		errors.Is(err, sampler.ErrMissingBody),
		errors.Is(err, sampler.ErrMissingName):
		return "configuration"
	default:
		return "user"
	}
}

// roundHalfUp rounds to the nearest integer, with halves rounded towards
// positive infinity.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
