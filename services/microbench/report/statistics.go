// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is the outcome of a two-sample t-test.
type TTestResult struct {
	// ProbabilityLevel is the two-tailed p-value.
	ProbabilityLevel float64

	// MeanDifference is mean(candidate) - mean(baseline).
	MeanDifference float64

	// ConfidenceInterval bounds MeanDifference at the requested level.
	ConfidenceInterval [2]float64

	// DegreesOfFreedom is the Welch-Satterthwaite estimate.
	DegreesOfFreedom float64
}

// TTest runs Welch's unequal-variance t-test on two sample sets.
//
// Description:
//
//	Uses sample variances and the Welch-Satterthwaite degrees of freedom.
//	The p-value is two-tailed. The confidence interval is centred on the
//	mean difference with half-width t*(1-(1-level)/2) times the standard
//	error.
//
// Inputs:
//   - baseline: Samples of the earlier run.
//   - candidate: Samples of the later run.
//   - confidenceLevel: In (0, 1), e.g. 0.95.
//
// Outputs:
//   - TTestResult: See field docs.
//
// Limitations:
//   - With fewer than two samples on either side there is no variance
//     estimate; the result has p = 1 and a degenerate interval.
//   - With zero variance on both sides, p is 1 when the means are equal
//     and 0 otherwise.
func TTest(baseline, candidate []float64, confidenceLevel float64) TTestResult {
	var diff float64
	if len(baseline) > 0 && len(candidate) > 0 {
		diff = stat.Mean(candidate, nil) - stat.Mean(baseline, nil)
	}
	degenerate := TTestResult{
		ProbabilityLevel:   1,
		MeanDifference:     diff,
		ConfidenceInterval: [2]float64{diff, diff},
	}

	nb, nc := float64(len(baseline)), float64(len(candidate))
	if nb < 2 || nc < 2 {
		return degenerate
	}

	vb := stat.Variance(baseline, nil) / nb
	vc := stat.Variance(candidate, nil) / nc
	se := math.Sqrt(vb + vc)
	if se == 0 || math.IsNaN(se) {
		if diff != 0 {
			degenerate.ProbabilityLevel = 0
		}
		return degenerate
	}

	df := (vb + vc) * (vb + vc) / (vb*vb/(nb-1) + vc*vc/(nc-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	t := diff / se
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	q := dist.Quantile(1 - (1-confidenceLevel)/2)

	return TTestResult{
		ProbabilityLevel:   math.Min(1, math.Max(0, p)),
		MeanDifference:     diff,
		ConfidenceInterval: [2]float64{diff - q*se, diff + q*se},
		DegreesOfFreedom:   df,
	}
}

// MarginOfError returns the half-width of the 95% confidence interval of the
// sample mean, as a percentage of that mean.
//
// Description:
//
//	The standard error uses the population standard deviation. The result
//	is 0 when it is undefined (fewer than two samples, or a zero mean).
func MarginOfError(samples []float64) float64 {
	n := float64(len(samples))
	if n < 2 {
		return 0
	}
	mean := stat.Mean(samples, nil)
	popSD := math.Sqrt(stat.Variance(samples, nil) * (n - 1) / n)
	se := popSD / math.Sqrt(n)

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	upper := mean + dist.Quantile(0.975)*se
	return finiteOrZero((upper - mean) / mean * 100)
}

// mean returns the arithmetic mean, or 0 for no samples.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// roundHalfUp rounds to the nearest integer, halves towards +Inf.
func roundHalfUp(x float64) float64 {
	r := math.Floor(x + 0.5)
	if r == 0 {
		return 0
	}
	return r
}
