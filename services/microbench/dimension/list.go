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
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDimension is returned when a dimension name does not resolve.
var ErrUnknownDimension = errors.New("unknown dimension")

// Measurements holds one value per dimension, positionally aligned with the
// List that produced it.
type Measurements []float64

// List is an ordered set of dimensions.
type List []Dimension

// Names returns the dimension names in list order.
func (l List) Names() []string {
	names := make([]string, len(l))
	for i, d := range l {
		names[i] = d.Name()
	}
	return names
}

// Units maps each dimension name to its unit suffix.
func (l List) Units() map[string]string {
	units := make(map[string]string, len(l))
	for _, d := range l {
		units[d.Name()] = d.Units()
	}
	return units
}

// Index returns the position of the named dimension, or -1.
func (l List) Index(name string) int {
	for i, d := range l {
		if d.Name() == name {
			return i
		}
	}
	return -1
}

// StartMeasuring invokes every start probe in list order.
//
// Description:
//
//	Tokens are written into the supplied buffer, which is returned resliced
//	to len(dims). A new buffer is allocated only when tokens is too small.
//	A panicking probe is re-raised as a *ProbeError naming the dimension.
//
// Inputs:
//   - dims: Dimensions to start.
//   - tokens: Reusable token buffer. May be nil.
//
// Outputs:
//   - []any: Start tokens, index i belongs to dims[i].
func StartMeasuring(dims List, tokens []any) []any {
	if cap(tokens) < len(dims) {
		tokens = make([]any, len(dims))
	}
	tokens = tokens[:len(dims)]

	i := 0
	defer reraise(dims, &i, "start")
	for ; i < len(dims); i++ {
		tokens[i] = dims[i].StartMeasuring()
	}
	return tokens
}

// StopMeasuring invokes every stop probe in reverse list order.
//
// Description:
//
//	The result for dims[i] is written to out[i] regardless of the order in
//	which probes fire. The returned slice aliases out unless out was too
//	small. A panicking probe is re-raised as a *ProbeError.
//
// Inputs:
//   - dims: Dimensions to stop. Must be the list passed to StartMeasuring.
//   - tokens: Tokens returned by StartMeasuring.
//   - out: Reusable output buffer. May be nil.
//
// Outputs:
//   - Measurements: One value per dimension.
func StopMeasuring(dims List, tokens []any, out Measurements) Measurements {
	if cap(out) < len(dims) {
		out = make(Measurements, len(dims))
	}
	out = out[:len(dims)]

	i := len(dims) - 1
	defer reraise(dims, &i, "stop")
	for ; i >= 0; i-- {
		out[i] = dims[i].StopMeasuring(tokens[i])
	}
	return out
}

func reraise(dims List, i *int, phase string) {
	r := recover()
	if r == nil {
		return
	}
	if pe, ok := r.(*ProbeError); ok {
		panic(pe)
	}
	name := "?"
	if *i >= 0 && *i < len(dims) {
		name = dims[*i].Name()
	}
	panic(&ProbeError{Dimension: name, Phase: phase, Value: r})
}

// Lookup resolves dimension names to the built-in dimensions.
//
// Description:
//
//	Names are matched case-insensitively after trimming. Empty names are
//	skipped so that a comma-split flag value can be passed directly. Debug
//	markers are written to standard error.
//
// Outputs:
//   - List: Dimensions in the order requested.
//   - error: Wraps ErrUnknownDimension for the first unresolved name.
func Lookup(names ...string) (List, error) {
	dims := make(List, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		d, ok := builtins()[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownDimension, raw, strings.Join(BuiltinNames(), ", "))
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// BuiltinNames lists the names accepted by Lookup in a stable order.
func BuiltinNames() []string {
	return []string{"time", "memory", "allocs", "cpu", "rss", "debug"}
}
