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
)

// RunOnce executes b a single time without measuring it.
//
// Description:
//
//	Runs set-up, one body invocation (one Run call, or one StartRunning
//	call awaited to completion) and tear-down. A set-up failure returns
//	immediately without tear-down. A body failure still attempts tear-down
//	and is returned in preference to a tear-down failure.
//
// Outputs:
//   - any: The value returned by Run. Always nil for Async benchmarks.
//   - error: The first failure, async rejections unwrapped.
func RunOnce(ctx context.Context, b Benchmark) (any, error) {
	if err := Validate(b); err != nil {
		return nil, err
	}
	if err := SetUpBenchmark(b); err != nil {
		return nil, err
	}

	var (
		value   any
		bodyErr error
	)
	switch b := b.(type) {
	case *Sync:
		value, bodyErr = callRun(b)
	case *Async:
		var c Completion
		if c, bodyErr = callStartRunning(b); bodyErr == nil {
			bodyErr = AwaitAll(ctx, c)
		}
	}

	tearDownErr := TearDownBenchmark(b)
	if bodyErr != nil {
		return nil, bodyErr
	}
	if tearDownErr != nil {
		return nil, tearDownErr
	}
	return value, nil
}

func callRun(b *Sync) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(b.Name, "run", r)
		}
	}()
	return b.Run()
}

func callStartRunning(b *Async) (c Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(b.Name, "startRunning", r)
		}
	}()
	return b.StartRunning(), nil
}
