// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianBench/services/microbench/report"
	"github.com/AleutianAI/AleutianBench/services/microbench/results"
	"github.com/AleutianAI/AleutianBench/services/microbench/telemetry"
)

type compareFlags struct {
	dimension   string
	threshold   float64
	confidence  float64
	metricsFile string
}

func newCompareCmd(a *app) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare BASELINE CANDIDATE",
		Short: "Compare two saved runs with Welch's t-test",
		Long: `Compare two saved runs benchmark by benchmark. The earlier run is the
baseline. Only benchmarks whose difference is significant are listed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareRuns(cmd, a, f, args[0], args[1])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.dimension, "dimension", "", "dimension to compare (default time)")
	flags.Float64Var(&f.threshold, "threshold", 0, "significance threshold for p")
	flags.Float64Var(&f.confidence, "confidence", 0, "confidence level of the interval")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write comparison metrics to this file")
	return cmd
}

func compareRuns(cmd *cobra.Command, a *app, f *compareFlags, pathA, pathB string) (err error) {
	cfg := a.cfg
	changed := cmd.Flags().Changed
	if changed("dimension") {
		cfg.Compare.Dimension = f.dimension
	}
	if changed("threshold") {
		cfg.Compare.Threshold = f.threshold
	}
	if changed("confidence") {
		cfg.Compare.Confidence = f.confidence
	}
	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = f.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	fa, err := results.LoadFile(pathA)
	if err != nil {
		return err
	}
	fb, err := results.LoadFile(pathB)
	if err != nil {
		return err
	}

	rt, err := newRunTelemetry(ctx, a, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if cerr := rt.close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing telemetry: %w", cerr))
		}
	}()

	dim := cfg.Compare.Dimension
	a.out.Title(fmt.Sprintf("%s vs %s", fa.Name, fb.Name))
	opts := append(cfg.CompareOptions(), report.WithLogger(a.slog()))
	comparisons, err := report.Compare(fa.SuiteResult(), fb.SuiteResult(), dim, a.out.Table(), opts...)
	if err != nil {
		return err
	}

	for _, c := range comparisons {
		if rerr := rt.sink.RecordComparison(ctx, &telemetry.ComparisonData{
			Benchmark:     c.Name,
			Dimension:     dim,
			PValue:        c.Test.ProbabilityLevel,
			Significant:   c.Significant,
			ChangePercent: c.ChangePercent,
		}); rerr != nil {
			a.slog().Warn("recording telemetry", "benchmark", c.Name, "error", rerr)
		}
	}
	return nil
}
