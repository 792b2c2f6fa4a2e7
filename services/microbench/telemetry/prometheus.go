// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned when the Prometheus configuration is invalid.
	ErrInvalidConfig = errors.New("invalid prometheus configuration")

	// ErrRegistrationFailed is returned when metric registration fails.
	ErrRegistrationFailed = errors.New("metric registration failed")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// PrometheusConfig configures the Prometheus sink.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type PrometheusConfig struct {
	// Namespace is the metrics namespace. Required.
	Namespace string

	// Subsystem is the metrics subsystem. Required.
	Subsystem string

	// Registry is the registry to register on.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// SampleBuckets are histogram buckets for per-operation sample values.
	// Samples of every dimension share these buckets, so they span
	// nanoseconds through gigabytes. If nil, uses default buckets.
	SampleBuckets []float64

	// DurationBuckets are histogram buckets for suite durations (seconds).
	// If nil, uses default buckets.
	DurationBuckets []float64

	// MaxLabelCardinality caps unique values per label. Excess values are
	// mapped to "_other". Default: 1000.
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns a configuration with defaults applied.
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace:           "aleutian",
		Subsystem:           "microbench",
		SampleBuckets:       prometheus.ExponentialBuckets(1, 4, 16),
		DurationBuckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		MaxLabelCardinality: 1000,
	}
}

// Validate checks that required fields are set.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Prometheus Sink
// -----------------------------------------------------------------------------

// PrometheusSink exports benchmark telemetry as Prometheus metrics.
//
// Description:
//
//	Every sample of every dimension is observed into a histogram labelled
//	by suite, benchmark and dimension; the per-dimension mean is exposed as
//	a gauge. Collectors are registered on creation and unregistered on
//	Close when the registry is a *prometheus.Registry.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	cfg := telemetry.DefaultPrometheusConfig()
//	cfg.Registry = reg
//	sink, err := telemetry.NewPrometheusSink(cfg)
//	if err != nil {
//	    return fmt.Errorf("create prometheus sink: %w", err)
//	}
//	defer sink.Close()
type PrometheusSink struct {
	config   *PrometheusConfig
	registry prometheus.Registerer

	sampleValue    *prometheus.HistogramVec
	samplesTotal   *prometheus.CounterVec
	benchmarkMean  *prometheus.GaugeVec
	opsPerSample   *prometheus.GaugeVec
	suiteDuration  *prometheus.HistogramVec
	suiteSize      *prometheus.GaugeVec
	comparisonDiff *prometheus.GaugeVec
	comparePValue  *prometheus.GaugeVec
	comparisons    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool

	collectors []prometheus.Collector

	labelMu        sync.RWMutex
	seenLabels     map[string]map[string]struct{}
	maxCardinality int
}

// NewPrometheusSink creates and registers a Prometheus sink.
//
// Inputs:
//   - config: Prometheus configuration. Must not be nil.
//
// Outputs:
//   - *PrometheusSink: The created sink. Never nil on success.
//   - error: Wraps ErrInvalidConfig or ErrRegistrationFailed.
//
// Assumptions:
//   - A collector that is already registered is reused silently.
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	defaults := DefaultPrometheusConfig()
	if cfg.SampleBuckets == nil {
		cfg.SampleBuckets = defaults.SampleBuckets
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = defaults.DurationBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	maxCard := cfg.MaxLabelCardinality
	if maxCard <= 0 {
		maxCard = defaults.MaxLabelCardinality
	}

	s := &PrometheusSink{
		config:         &cfg,
		registry:       registry,
		seenLabels:     make(map[string]map[string]struct{}),
		maxCardinality: maxCard,
	}

	s.sampleValue = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "sample_value",
		Help:      "Per-operation sample values by dimension",
		Buckets:   cfg.SampleBuckets,
	}, []string{"suite", "benchmark", "dimension"})

	s.samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "samples_total",
		Help:      "Total samples recorded",
	}, []string{"suite", "benchmark"})

	s.benchmarkMean = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "benchmark_mean",
		Help:      "Mean per-operation value of the last run by dimension",
	}, []string{"suite", "benchmark", "dimension", "units"})

	s.opsPerSample = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "ops_per_sample",
		Help:      "Body invocations per sample",
	}, []string{"suite", "benchmark"})

	s.suiteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "suite_duration_seconds",
		Help:      "Suite run duration in seconds",
		Buckets:   cfg.DurationBuckets,
	}, []string{"suite"})

	s.suiteSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "suite_benchmarks",
		Help:      "Benchmarks in the last completed run",
	}, []string{"suite"})

	s.comparisonDiff = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "comparison_change_percent",
		Help:      "Mean difference relative to baseline, in percent",
	}, []string{"benchmark", "dimension"})

	s.comparePValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "comparison_p_value",
		Help:      "Two-tailed p-value of the comparison",
	}, []string{"benchmark", "dimension"})

	s.comparisons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "comparisons_total",
		Help:      "Total benchmarks compared",
	}, []string{"significant"})

	s.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "errors_total",
		Help:      "Total fatal run errors by phase and type",
	}, []string{"suite", "phase", "error_type"})

	s.collectors = []prometheus.Collector{
		s.sampleValue,
		s.samplesTotal,
		s.benchmarkMean,
		s.opsPerSample,
		s.suiteDuration,
		s.suiteSize,
		s.comparisonDiff,
		s.comparePValue,
		s.comparisons,
		s.errorsTotal,
	}
	for _, c := range s.collectors {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
		}
	}
	return s, nil
}

func (s *PrometheusSink) open(ctx context.Context, nilData bool) error {
	if err := checkArgs(ctx, nilData); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// RecordBenchmark observes every sample and updates the mean gauges.
func (s *PrometheusSink) RecordBenchmark(ctx context.Context, data *BenchmarkData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}

	suite := s.sanitizeLabel("suite", orUnknown(data.Suite))
	name := s.sanitizeLabel("benchmark", orUnknown(data.Name))

	var count int
	for _, d := range data.Dimensions {
		hist := s.sampleValue.WithLabelValues(suite, name, d.Name)
		for _, v := range d.Samples {
			hist.Observe(v)
		}
		if len(d.Samples) > 0 {
			s.benchmarkMean.WithLabelValues(suite, name, d.Name, d.Units).Set(stat.Mean(d.Samples, nil))
		}
		count = max(count, len(d.Samples))
	}
	s.samplesTotal.WithLabelValues(suite, name).Add(float64(count))
	s.opsPerSample.WithLabelValues(suite, name).Set(float64(data.OpsPerSample))
	return nil
}

// RecordSuite records the suite duration and size.
func (s *PrometheusSink) RecordSuite(ctx context.Context, data *SuiteData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	suite := s.sanitizeLabel("suite", orUnknown(data.Name))
	s.suiteDuration.WithLabelValues(suite).Observe(data.Duration.Seconds())
	s.suiteSize.WithLabelValues(suite).Set(float64(data.Benchmarks))
	return nil
}

// RecordComparison records the change and p-value of one benchmark.
func (s *PrometheusSink) RecordComparison(ctx context.Context, data *ComparisonData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	name := s.sanitizeLabel("benchmark", orUnknown(data.Benchmark))
	dim := orUnknown(data.Dimension)
	s.comparisonDiff.WithLabelValues(name, dim).Set(data.ChangePercent)
	s.comparePValue.WithLabelValues(name, dim).Set(data.PValue)
	s.comparisons.WithLabelValues(strconv.FormatBool(data.Significant)).Inc()
	return nil
}

// RecordError increments the error counter.
func (s *PrometheusSink) RecordError(ctx context.Context, data *ErrorData) error {
	if err := s.open(ctx, data == nil); err != nil {
		return err
	}
	s.errorsTotal.WithLabelValues(
		s.sanitizeLabel("suite", orUnknown(data.Suite)),
		orUnknown(data.Phase),
		orUnknown(data.ErrorType),
	).Inc()
	return nil
}

// Flush is a no-op; Prometheus metrics are pull-based.
func (s *PrometheusSink) Flush(ctx context.Context) error {
	return s.open(ctx, false)
}

// Close unregisters the collectors. Idempotent.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if reg, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			reg.Unregister(c)
		}
	}
	return nil
}

// sanitizeLabel maps label values beyond MaxLabelCardinality to "_other".
func (s *PrometheusSink) sanitizeLabel(label, value string) string {
	s.labelMu.RLock()
	seen := s.seenLabels[label]
	if seen != nil {
		if _, ok := seen[value]; ok {
			s.labelMu.RUnlock()
			return value
		}
		if len(seen) >= s.maxCardinality {
			s.labelMu.RUnlock()
			return "_other"
		}
	}
	s.labelMu.RUnlock()

	s.labelMu.Lock()
	defer s.labelMu.Unlock()
	if s.seenLabels[label] == nil {
		s.seenLabels[label] = make(map[string]struct{})
	}
	if _, ok := s.seenLabels[label][value]; ok {
		return value
	}
	if len(s.seenLabels[label]) >= s.maxCardinality {
		return "_other"
	}
	s.seenLabels[label][value] = struct{}{}
	return value
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Verify interface compliance at compile time.
var _ Sink = (*PrometheusSink)(nil)
