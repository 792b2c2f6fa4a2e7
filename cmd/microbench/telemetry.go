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
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianBench/services/microbench/config"
	"github.com/AleutianAI/AleutianBench/services/microbench/telemetry"
)

const tracerName = "microbench"

// runTelemetry owns the providers and sinks of one command.
type runTelemetry struct {
	providers   *telemetry.Providers
	sink        telemetry.Sink
	registry    *prometheus.Registry
	metricsFile string
}

// newRunTelemetry builds the exporters selected by cfg.
//
// Description:
//
//	Traces go to stdout (written to stderr) with Trace, or to the OTLP
//	endpoint when one is set. OTel metrics go to stderr with OTelMetrics;
//	otherwise, when a metrics file is requested, they are exported into
//	the same Prometheus registry as the native sink and written with it.
func newRunTelemetry(ctx context.Context, a *app, cfg config.TelemetryConfig) (*runTelemetry, error) {
	rt := &runTelemetry{metricsFile: cfg.MetricsFile}

	pcfg := telemetry.DefaultProviderConfig()
	pcfg.ServiceVersion = version
	pcfg.Writer = a.stderr
	switch {
	case cfg.OTLPEndpoint != "":
		pcfg.TraceExporter = telemetry.ExporterOTLP
		pcfg.OTLPEndpoint = cfg.OTLPEndpoint
	case cfg.Trace:
		pcfg.TraceExporter = telemetry.ExporterStdout
	}
	if cfg.MetricsFile != "" {
		rt.registry = prometheus.NewRegistry()
		pcfg.Registerer = rt.registry
	}
	switch {
	case cfg.OTelMetrics:
		pcfg.MetricExporter = telemetry.ExporterStdout
	case rt.registry != nil:
		pcfg.MetricExporter = telemetry.ExporterPrometheus
	}

	providers, err := telemetry.NewProviders(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	rt.providers = providers

	var sinks []telemetry.Sink
	if rt.registry != nil {
		promCfg := telemetry.DefaultPrometheusConfig()
		promCfg.Registry = rt.registry
		promSink, err := telemetry.NewPrometheusSink(promCfg)
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(ctx))
		}
		sinks = append(sinks, promSink)
	}
	if pcfg.MetricExporter != telemetry.ExporterNone {
		otelCfg := telemetry.DefaultOTelConfig()
		otelCfg.ServiceVersion = version
		otelCfg.MeterProvider = providers.MeterProvider
		otelSink, err := telemetry.NewOTelSink(otelCfg)
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(ctx))
		}
		sinks = append(sinks, otelSink)
	}

	switch len(sinks) {
	case 0:
		rt.sink = telemetry.NewNoOpSink()
	case 1:
		rt.sink = sinks[0]
	default:
		composite, err := telemetry.NewCompositeSink(sinks...)
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(ctx))
		}
		rt.sink = composite
	}
	return rt, nil
}

func (rt *runTelemetry) tracer() trace.Tracer {
	return rt.providers.TracerProvider.Tracer(tracerName, trace.WithInstrumentationVersion(version))
}

// close flushes the sinks, writes the metrics file, then shuts the
// providers down. The pull-based prometheus exporter stops reporting once
// its provider is shut down, so the file is written first.
func (rt *runTelemetry) close(ctx context.Context) error {
	errs := []error{rt.sink.Flush(ctx)}
	if rt.registry != nil {
		if err := prometheus.WriteToTextfile(rt.metricsFile, rt.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics file: %w", err))
		}
	}
	errs = append(errs, rt.providers.Shutdown(ctx), rt.sink.Close())
	return errors.Join(errs...)
}
