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
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
)

var (
	// ErrBenchmarkNotFound indicates no benchmark of the given name.
	ErrBenchmarkNotFound = errors.New("benchmark not found")

	// ErrWrongVariant indicates a Sync/Async mismatch.
	ErrWrongVariant = errors.New("benchmark has the wrong variant")
)

// RunBenchmarkTest runs the named synchronous benchmark once, outside any
// measurement, and returns the value of its body.
//
// Description:
//
//	Lets a unit test assert on what a benchmark body computes. Set-up and
//	tear-down run around the single Run call.
//
// Outputs:
//   - any: The value returned by Run.
//   - error: ErrBenchmarkNotFound, ErrWrongVariant, or the benchmark's own
//     error unchanged.
func RunBenchmarkTest(ctx context.Context, suite []sampler.Item, name string) (any, error) {
	b, err := find(suite, name)
	if err != nil {
		return nil, err
	}
	if _, ok := b.(*sampler.Sync); !ok {
		return nil, fmt.Errorf("%w: %q is asynchronous", ErrWrongVariant, name)
	}
	return sampler.RunOnce(ctx, b)
}

// StartBenchmarkTest runs the named asynchronous benchmark once and waits
// for its completion.
//
// Outputs:
//   - error: ErrBenchmarkNotFound, ErrWrongVariant, or the benchmark's own
//     error (including a rejection) unchanged.
func StartBenchmarkTest(ctx context.Context, suite []sampler.Item, name string) error {
	b, err := find(suite, name)
	if err != nil {
		return err
	}
	if _, ok := b.(*sampler.Async); !ok {
		return fmt.Errorf("%w: %q is synchronous", ErrWrongVariant, name)
	}
	_, err = sampler.RunOnce(ctx, b)
	return err
}

func find(suite []sampler.Item, name string) (sampler.Benchmark, error) {
	for _, b := range sampler.Flatten(suite...) {
		if b.BenchmarkName() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBenchmarkNotFound, name)
}
