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

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
)

// warmUp runs every benchmark once, in order, discarding results.
//
// The first failure aborts the pass and is returned unchanged along with
// the benchmark that caused it.
func warmUp(ctx context.Context, queue []sampler.Benchmark) (sampler.Benchmark, error) {
	for _, b := range queue {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		if _, err := sampler.RunOnce(ctx, b); err != nil {
			return b, err
		}
	}
	return nil, nil
}
