// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sampler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianBench/services/microbench/dimension"
)

// Stabilizer settles the allocator before a sample is measured.
type Stabilizer func()

// Option configures a Sampler.
type Option func(*Sampler)

// WithStabilizer sets the stabilization hook run before each sample.
//
// Passing nil declares stabilization unavailable; dimensions that require it
// then read 0 instead of an unreliable value.
func WithStabilizer(fn Stabilizer) Option {
	return func(s *Sampler) {
		s.stabilize = fn
	}
}

// Sampler collects samples for one run.
//
// Description:
//
//	A Sampler owns the run's dimension list and the buffers reused across
//	samples. The Measurements passed to a complete callback alias the
//	sampler's output buffer and are only valid until the next sample.
//
// Thread Safety: Not safe for concurrent use. One run, one sampler.
type Sampler struct {
	dims      dimension.List
	stabilize Stabilizer

	// unstable holds indices of dimensions that read 0 without stabilization.
	unstable []int

	tokens  []any
	ending  dimension.Measurements
	pending []Completion
}

// New creates a Sampler for dims.
//
// The default stabilizer is runtime.GC.
func New(dims dimension.List, opts ...Option) *Sampler {
	s := &Sampler{
		dims:      dims,
		stabilize: runtime.GC,
		tokens:    make([]any, len(dims)),
		ending:    make(dimension.Measurements, len(dims)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stabilize == nil {
		for i, d := range dims {
			if sa, ok := d.(dimension.StabilityAware); ok && sa.RequiresStabilization() {
				s.unstable = append(s.unstable, i)
			}
		}
	}
	return s
}

// Dimensions returns the sampler's dimension list.
func (s *Sampler) Dimensions() dimension.List {
	return s.dims
}

// Collect takes one sample of b with ops operations and returns its
// measurements, dispatching on the benchmark variant.
//
// Outputs:
//   - dimension.Measurements: Valid until the next call.
//   - error: The first failure; async rejections are returned unwrapped.
func (s *Sampler) Collect(ctx context.Context, b Benchmark, ops int) (dimension.Measurements, error) {
	var (
		out dimension.Measurements
		err error
	)
	complete := func(m dimension.Measurements) { out = m }
	reject := func(e error) { err = e }

	switch b := b.(type) {
	case *Sync:
		s.CollectSynchronousSample(b, ops, complete, reject)
	case *Async:
		s.CollectAsynchronousSample(ctx, b, ops, complete, reject)
	}
	return out, err
}

// CollectSynchronousSample takes one sample of a synchronous benchmark.
//
// Description:
//
//	Runs set-up, stabilizes, starts every dimension, invokes Run ops times,
//	stops every dimension, then runs tear-down. A failing Run aborts the
//	remaining iterations; the dimensions are still stopped and tear-down is
//	still attempted, but the sample rejects with the body's error. A set-up
//	failure rejects before anything is measured and skips tear-down.
//
// Inputs:
//   - b: The benchmark. Must not be nil.
//   - ops: Body invocations in the sample.
//   - complete: Receives the measurements on success.
//   - reject: Receives the failure.
//
// Exactly one of complete and reject is called, exactly once.
func (s *Sampler) CollectSynchronousSample(b *Sync, ops int, complete func(dimension.Measurements), reject func(error)) {
	if err := Validate(b); err != nil {
		reject(err)
		return
	}
	if err := SetUpBenchmark(b); err != nil {
		reject(err)
		return
	}
	s.settle()

	tokens, err := s.start()
	if err != nil {
		_ = TearDownBenchmark(b)
		reject(err)
		return
	}

	bodyErr := s.runSync(b, ops)

	ending, err := s.stop(tokens)
	if bodyErr == nil {
		bodyErr = err
	}
	s.finish(b, ending, bodyErr, complete, reject)
}

// CollectAsynchronousSample takes one sample of an asynchronous benchmark.
//
// Description:
//
//	Follows the same lifecycle as CollectSynchronousSample, except that
//	StartRunning is invoked ops times up front and the dimensions are only
//	stopped once every returned Completion has resolved. Completions are
//	awaited in issue order and the first rejection seen rejects the sample
//	with that exact error value. A panic in StartRunning rejects without
//	awaiting completions already issued.
//
//	ctx bounds the wait; a hung Completion blocks until ctx is done.
//
// Exactly one of complete and reject is called, exactly once.
func (s *Sampler) CollectAsynchronousSample(ctx context.Context, b *Async, ops int, complete func(dimension.Measurements), reject func(error)) {
	if err := Validate(b); err != nil {
		reject(err)
		return
	}
	if err := SetUpBenchmark(b); err != nil {
		reject(err)
		return
	}
	if cap(s.pending) < ops {
		s.pending = make([]Completion, 0, ops)
	}
	s.settle()

	tokens, err := s.start()
	if err != nil {
		_ = TearDownBenchmark(b)
		reject(err)
		return
	}

	bodyErr := s.startAsync(b, ops)
	if bodyErr == nil {
		bodyErr = s.drain(ctx)
	}
	clear(s.pending)

	ending, err := s.stop(tokens)
	if bodyErr == nil {
		bodyErr = err
	}
	s.finish(b, ending, bodyErr, complete, reject)
}

// drain awaits s.pending in issue order. It runs inside the measurement
// window and must not allocate.
func (s *Sampler) drain(ctx context.Context) error {
	done := ctx.Done()
	for _, c := range s.pending {
		if c == nil {
			continue
		}
		select {
		case err, ok := <-c:
			if ok && err != nil {
				return err
			}
		case <-done:
			return ctx.Err()
		}
	}
	return nil
}

// AwaitAll blocks until every completion has resolved and returns the first
// rejection, unwrapped. Nil completions count as resolved.
func AwaitAll(ctx context.Context, completions ...Completion) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range completions {
		if c == nil {
			continue
		}
		g.Go(func() error {
			select {
			case err, ok := <-c:
				if !ok {
					return nil
				}
				return err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

func (s *Sampler) finish(b Benchmark, ending dimension.Measurements, bodyErr error, complete func(dimension.Measurements), reject func(error)) {
	tearDownErr := TearDownBenchmark(b)
	switch {
	case bodyErr != nil:
		reject(bodyErr)
	case tearDownErr != nil:
		reject(tearDownErr)
	default:
		complete(ending)
	}
}

func (s *Sampler) settle() {
	if s.stabilize != nil {
		s.stabilize()
	}
}

func (s *Sampler) start() (tokens []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = probeFailure(r)
		}
	}()
	s.tokens = dimension.StartMeasuring(s.dims, s.tokens)
	return s.tokens, nil
}

func (s *Sampler) stop(tokens []any) (ending dimension.Measurements, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = probeFailure(r)
		}
	}()
	s.ending = dimension.StopMeasuring(s.dims, tokens, s.ending)
	for _, i := range s.unstable {
		s.ending[i] = 0
	}
	return s.ending, nil
}

func probeFailure(r any) error {
	if pe, ok := r.(*dimension.ProbeError); ok {
		return pe
	}
	return &dimension.ProbeError{Dimension: "?", Phase: "measure", Value: r}
}

func (s *Sampler) runSync(b *Sync, ops int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(b.Name, "run", r)
		}
	}()
	run := b.Run
	for i := 0; i < ops; i++ {
		if _, err = run(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sampler) startAsync(b *Async, ops int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(b.Name, "startRunning", r)
		}
	}()
	s.pending = s.pending[:0]
	start := b.StartRunning
	for i := 0; i < ops; i++ {
		s.pending = append(s.pending, start())
	}
	return nil
}
