// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dimension

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Time measures monotonic elapsed time in nanoseconds.
var Time = New("time", "Elapsed Time", "ns",
	time.Now,
	func(start time.Time) float64 {
		return float64(time.Since(start).Nanoseconds())
	},
)

// Memory measures the change in live heap bytes across a sample.
//
// Readings are only meaningful when the garbage collector ran before the
// sample; without a stabilization hook the sampler reports 0.
var Memory = newStabilized("memory", "Memory", "b",
	func() uint64 { return readMemStats().HeapAlloc },
	func(start uint64) float64 {
		return float64(readMemStats().HeapAlloc) - float64(start)
	},
)

// Allocs counts heap objects allocated during a sample.
var Allocs = New("allocs", "Allocations", "allocs",
	func() uint64 { return readMemStats().Mallocs },
	func(start uint64) float64 {
		return float64(readMemStats().Mallocs - start)
	},
)

// CPU measures user plus system CPU time consumed by the process.
var CPU = New("cpu", "CPU Time", "ns", cpuNanos, func(start int64) float64 {
	return float64(cpuNanos() - start)
})

// RSS measures the change in resident set size.
var RSS = New("rss", "Resident Set", "b", rssBytes, func(start uint64) float64 {
	return float64(rssBytes()) - float64(start)
})

func readMemStats() runtime.MemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms
}

// Debug returns a dimension that writes start and stop markers to w and
// always measures 0. It is used to trace probe ordering.
func Debug(w io.Writer) Dimension {
	var seq int
	return New("debug", "Debug", "-",
		func() int {
			seq++
			fmt.Fprintf(w, "debug: start %d\n", seq)
			return seq
		},
		func(start int) float64 {
			fmt.Fprintf(w, "debug: stop %d\n", start)
			return 0
		},
	)
}

// Constant returns a dimension whose start token is start and whose stop
// probe returns start+delta. It makes sampler output predictable in tests.
func Constant(name string, start, delta float64) Dimension {
	return New(name, name, "-",
		func() float64 { return start },
		func(s float64) float64 { return s + delta },
	)
}

func builtins() map[string]Dimension {
	return map[string]Dimension{
		"time":   Time,
		"memory": Memory,
		"allocs": Allocs,
		"cpu":    CPU,
		"rss":    RSS,
		"debug":  Debug(os.Stderr),
	}
}
