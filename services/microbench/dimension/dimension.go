// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dimension

import (
	"fmt"
)

// Dimension is a pluggable measurement strategy.
//
// Description:
//
//	StartMeasuring captures a dimension-specific token. StopMeasuring
//	computes the measured quantity from that token and the current process
//	state. StopMeasuring must not mutate shared state; it is a pure function
//	of the token and the process.
//
// Thread Safety: Implementations must be safe to call from the goroutine
// that drives a run; no concurrent use is required.
type Dimension interface {
	// Name is the stable key used in result sample maps (e.g. "time").
	Name() string

	// DisplayName is the human-readable label (e.g. "Elapsed Time").
	DisplayName() string

	// Units is the unit suffix used in reports (e.g. "ns").
	Units() string

	// StartMeasuring returns the start token for one sample.
	StartMeasuring() any

	// StopMeasuring returns the measurement for the token.
	StopMeasuring(start any) float64
}

// StabilityAware is implemented by dimensions whose readings are only
// meaningful after the allocator has been stabilized before the sample.
//
// When the sampling environment has no stabilization hook, readings of such
// dimensions are reported as 0.
type StabilityAware interface {
	RequiresStabilization() bool
}

// funcDimension adapts a typed start/stop pair to Dimension.
type funcDimension[T any] struct {
	name        string
	displayName string
	units       string
	start       func() T
	stop        func(T) float64
	stabilize   bool
}

// New builds a Dimension from typed probe functions.
//
// Description:
//
//	The token type T stays private to the probes; the engine only ever
//	handles it as an opaque value.
//
// Inputs:
//   - name: Sample map key. Must be non-empty.
//   - displayName: Human-readable label.
//   - units: Unit suffix for reports.
//   - start: Start probe. Must not be nil.
//   - stop: Stop probe. Must not be nil.
//
// Outputs:
//   - Dimension: The adapter. Never nil.
//
// Example:
//
//	counter := dimension.New("ticks", "Ticks", "-",
//	    func() int64 { return ticks.Load() },
//	    func(start int64) float64 { return float64(ticks.Load() - start) },
//	)
func New[T any](name, displayName, units string, start func() T, stop func(T) float64) Dimension {
	return &funcDimension[T]{
		name:        name,
		displayName: displayName,
		units:       units,
		start:       start,
		stop:        stop,
	}
}

// newStabilized is New for dimensions that implement StabilityAware.
func newStabilized[T any](name, displayName, units string, start func() T, stop func(T) float64) Dimension {
	return &funcDimension[T]{
		name:        name,
		displayName: displayName,
		units:       units,
		start:       start,
		stop:        stop,
		stabilize:   true,
	}
}

func (d *funcDimension[T]) Name() string        { return d.name }
func (d *funcDimension[T]) DisplayName() string { return d.displayName }
func (d *funcDimension[T]) Units() string       { return d.units }

func (d *funcDimension[T]) StartMeasuring() any {
	return d.start()
}

func (d *funcDimension[T]) StopMeasuring(start any) float64 {
	token, ok := start.(T)
	if !ok {
		panic(fmt.Sprintf("dimension %s: start token has type %T", d.name, start))
	}
	return d.stop(token)
}

func (d *funcDimension[T]) RequiresStabilization() bool {
	return d.stabilize
}

// ProbeError reports a panic raised by a start or stop probe.
//
// A failing probe is a configuration error for that dimension and is fatal
// to the whole run.
type ProbeError struct {
	// Dimension is the name of the failing dimension.
	Dimension string

	// Phase is "start" or "stop".
	Phase string

	// Value is the recovered panic value.
	Value any
}

// Error implements error.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("dimension %q %s probe failed: %v", e.Dimension, e.Phase, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ProbeError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
