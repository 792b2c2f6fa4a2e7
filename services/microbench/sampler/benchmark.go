// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sampler runs one benchmark sample: set-up, a batch of body
// operations bracketed by dimension probes, and tear-down.
//
// Benchmarks come in two variants, Sync and Async, sealed behind the
// Benchmark interface. Callers dispatch on the variant with a type switch:
//
//	switch b := b.(type) {
//	case *sampler.Sync:
//	    s.CollectSynchronousSample(b, ops, complete, reject)
//	case *sampler.Async:
//	    s.CollectAsynchronousSample(ctx, b, ops, complete, reject)
//	}
package sampler

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrMissingBody indicates a benchmark with no Run or StartRunning.
	ErrMissingBody = errors.New("benchmark has no body")

	// ErrMissingName indicates a benchmark with an empty name.
	ErrMissingName = errors.New("benchmark has no name")
)

// PanicError wraps a panic raised by user code in a hook or body.
type PanicError struct {
	// Benchmark is the name of the benchmark that panicked.
	Benchmark string

	// Phase is one of "setUp", "run", "startRunning" or "tearDown".
	Phase string

	// Value is the recovered value.
	Value any

	// Stack is the goroutine stack at the point of recovery.
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("benchmark %q panicked in %s: %v", e.Benchmark, e.Phase, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func recovered(name, phase string, r any) *PanicError {
	return &PanicError{Benchmark: name, Phase: phase, Value: r, Stack: debug.Stack()}
}

// =============================================================================
// Benchmark variants
// =============================================================================

// Item is an element of a suite: a Benchmark or a Group of items.
type Item interface {
	appendTo(dst []Benchmark) []Benchmark
}

// Benchmark is a named unit of work. The only implementations are *Sync and
// *Async.
type Benchmark interface {
	Item

	// BenchmarkName returns the benchmark's name.
	BenchmarkName() string

	// IsAsynchronous reports whether the benchmark is the Async variant.
	IsAsynchronous() bool

	hooks() (setUp, tearDown func() error)
}

// Sync is a benchmark whose body completes before Run returns.
type Sync struct {
	Name string

	// SetUp runs once before each sample. Optional.
	SetUp func() error

	// TearDown runs once after each sample. Optional.
	TearDown func() error

	// Run is the body, invoked ops times per sample. Its value is discarded.
	Run func() (any, error)
}

// Async is a benchmark whose body signals completion through a Completion.
type Async struct {
	Name string

	// SetUp runs once before each sample. Optional.
	SetUp func() error

	// TearDown runs once after each sample. Optional.
	TearDown func() error

	// StartRunning begins one operation and returns its Completion. It is
	// invoked ops times per sample before any completion is awaited.
	StartRunning func() Completion
}

func (b *Sync) BenchmarkName() string  { return b.Name }
func (b *Async) BenchmarkName() string { return b.Name }

func (b *Sync) IsAsynchronous() bool  { return false }
func (b *Async) IsAsynchronous() bool { return true }

func (b *Sync) hooks() (func() error, func() error)  { return b.SetUp, b.TearDown }
func (b *Async) hooks() (func() error, func() error) { return b.SetUp, b.TearDown }

func (b *Sync) appendTo(dst []Benchmark) []Benchmark {
	if b == nil {
		return dst
	}
	return append(dst, b)
}

func (b *Async) appendTo(dst []Benchmark) []Benchmark {
	if b == nil {
		return dst
	}
	return append(dst, b)
}

// Group nests items. Groups may contain other groups to any depth.
type Group []Item

func (g Group) appendTo(dst []Benchmark) []Benchmark {
	for _, item := range g {
		if item != nil {
			dst = item.appendTo(dst)
		}
	}
	return dst
}

// Flatten collapses nested groups into one linear sequence, preserving order.
// Nil items are skipped.
func Flatten(items ...Item) []Benchmark {
	return Group(items).appendTo(nil)
}

// Validate checks that b has a name and a body.
func Validate(b Benchmark) error {
	if b.BenchmarkName() == "" {
		return ErrMissingName
	}
	switch b := b.(type) {
	case *Sync:
		if b.Run == nil {
			return fmt.Errorf("%w: %q has no Run", ErrMissingBody, b.Name)
		}
	case *Async:
		if b.StartRunning == nil {
			return fmt.Errorf("%w: %q has no StartRunning", ErrMissingBody, b.Name)
		}
	}
	return nil
}

// =============================================================================
// Hooks
// =============================================================================

// SetUpBenchmark invokes the benchmark's set-up hook.
//
// Outputs:
//   - error: nil when the hook is absent or succeeds; the hook's error, or a
//     *PanicError, otherwise.
func SetUpBenchmark(b Benchmark) error {
	setUp, _ := b.hooks()
	return callHook(b.BenchmarkName(), "setUp", setUp)
}

// TearDownBenchmark invokes the benchmark's tear-down hook.
//
// Outputs:
//   - error: nil when the hook is absent or succeeds; the hook's error, or a
//     *PanicError, otherwise.
func TearDownBenchmark(b Benchmark) error {
	_, tearDown := b.hooks()
	return callHook(b.BenchmarkName(), "tearDown", tearDown)
}

func callHook(name, phase string, hook func() error) (err error) {
	if hook == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(name, phase, r)
		}
	}()
	return hook()
}
