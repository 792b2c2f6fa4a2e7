// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dimension defines the measurement protocol used by the sampler.
//
// # Overview
//
// A Dimension is a named quantity with a start probe and a stop probe. The
// start probe returns an opaque token; the stop probe turns that token plus
// the current process state into a scalar. A List orders several dimensions
// and defines how they are started and stopped together:
//
//	start:  dims[0].StartMeasuring(), dims[1].StartMeasuring(), ...
//	stop:   dims[n-1].StopMeasuring(), ..., dims[0].StopMeasuring()
//
// Stopping in reverse order gives stack discipline: the first dimension
// started encloses all the others, so a timer placed at index 0 also covers
// the cost of the inner probes' bookkeeping, and a memory probe at index 1
// never sees the timer's allocations.
//
// # Built-in Dimensions
//
//	Time      monotonic elapsed time          ns
//	Memory    heap-in-use delta               b
//	Allocs    heap object allocations         allocs
//	CPU       user+system CPU time (unix)     ns
//	RSS       resident set size delta         b
//	Debug     start/stop markers, measures 0  -
//
// # Hot Path
//
// StartMeasuring and StopMeasuring write into caller-supplied buffers so
// that no allocation happens between two probes of the same sample.
//
// # Thread Safety
//
// Dimensions are stateless adapters. A List must not be shared between two
// runs that execute at the same time.
package dimension
