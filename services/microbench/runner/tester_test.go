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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
)

func TestRunBenchmarkTest(t *testing.T) {
	ctx := context.Background()
	var tornDown bool
	suite := []sampler.Item{
		sampler.Group{
			&sampler.Sync{
				Name:     "answer",
				Run:      func() (any, error) { return 42, nil },
				TearDown: func() error { tornDown = true; return nil },
			},
		},
		&sampler.Async{Name: "later", StartRunning: sampler.Resolved},
	}

	v, err := RunBenchmarkTest(ctx, suite, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, tornDown)

	_, err = RunBenchmarkTest(ctx, suite, "missing")
	assert.ErrorIs(t, err, ErrBenchmarkNotFound)

	_, err = RunBenchmarkTest(ctx, suite, "later")
	assert.ErrorIs(t, err, ErrWrongVariant)
}

func TestStartBenchmarkTest(t *testing.T) {
	ctx := context.Background()
	oops := errors.New("Oops")
	suite := []sampler.Item{
		&sampler.Async{Name: "ok", StartRunning: func() sampler.Completion {
			return sampler.Go("ok", func() error { return nil })
		}},
		&sampler.Async{Name: "rejects", StartRunning: func() sampler.Completion { return sampler.Rejected(oops) }},
		&sampler.Sync{Name: "sync", Run: func() (any, error) { return nil, nil }},
	}

	assert.NoError(t, StartBenchmarkTest(ctx, suite, "ok"))
	assert.Same(t, oops, StartBenchmarkTest(ctx, suite, "rejects"))
	assert.ErrorIs(t, StartBenchmarkTest(ctx, suite, "sync"), ErrWrongVariant)
	assert.ErrorIs(t, StartBenchmarkTest(ctx, suite, "nope"), ErrBenchmarkNotFound)
}
