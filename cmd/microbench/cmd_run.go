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
	"github.com/AleutianAI/AleutianBench/services/microbench/runner"
)

type runFlags struct {
	suite       string
	ops         int
	samples     int
	dimensions  []string
	output      string
	trace       bool
	otlp        string
	metricsFile string
	otelMetrics bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a registered suite and print its report",
		Long: `Run a registered suite and print the mean and margin of error of every
measured dimension. With -o the run is also saved as JSON for "report" and
"compare".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(cmd, a, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.suite, "suite", "", "suite to run (see \"microbench list\")")
	flags.IntVar(&f.ops, "ops", 0, "operations per sample")
	flags.IntVar(&f.samples, "samples", 0, "samples per benchmark")
	flags.StringSliceVar(&f.dimensions, "dimensions", nil, "dimensions to measure, e.g. time,memory")
	flags.StringVarP(&f.output, "output", "o", "", "write the run to this JSON file")
	flags.BoolVar(&f.trace, "trace", false, "print spans to stderr")
	flags.StringVar(&f.otlp, "otlp-endpoint", "", "export spans to this OTLP/gRPC endpoint")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	flags.BoolVar(&f.otelMetrics, "otel-metrics", false, "print OpenTelemetry metrics to stderr")
	return cmd
}

// apply overrides the configuration with the flags that were set.
func (f *runFlags) apply(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	changed := cmd.Flags().Changed
	if changed("suite") {
		cfg.Suite = f.suite
	}
	if changed("ops") {
		cfg.OpsPerSample = f.ops
	}
	if changed("samples") {
		cfg.NumSamples = f.samples
	}
	if changed("dimensions") {
		cfg.Dimensions = f.dimensions
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("trace") {
		cfg.Telemetry.Trace = f.trace
	}
	if changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = f.otlp
	}
	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = f.metricsFile
	}
	if changed("otel-metrics") {
		cfg.Telemetry.OTelMetrics = f.otelMetrics
	}
	if cfg.Suite == "" {
		return errors.New("no suite selected: pass --suite or set suite in the config file")
	}
	return cfg.Validate()
}

func runSuite(cmd *cobra.Command, a *app, f *runFlags) (err error) {
	if err := f.apply(cmd, a); err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := a.cfg

	suite, err := a.registry.Lookup(cfg.Suite)
	if err != nil {
		return err
	}
	dims, err := cfg.DimensionList()
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

	opts := append(cfg.RunOptions(),
		runner.WithLogger(a.slog()),
		runner.WithSink(rt.sink),
		runner.WithTracer(rt.tracer()),
	)
	result, err := runner.Benchmark(ctx, suite.Name, suite.Items, dims, opts...)
	if err != nil {
		return fmt.Errorf("running suite %q: %w", suite.Name, err)
	}

	a.out.Title(fmt.Sprintf("%s (%d samples of %d ops)", suite.Name, cfg.NumSamples, cfg.OpsPerSample))
	if err := report.Report(result, a.out.Table()); err != nil {
		return err
	}

	if cfg.Output != "" {
		if err := results.SaveFile(cfg.Output, result, results.CollectHost(ctx)); err != nil {
			return err
		}
		a.out.Success("saved " + cfg.Output)
	}
	return nil
}
