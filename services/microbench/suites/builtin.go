// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suites

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
)

const (
	mapSize   = 1024
	fragments = 16
)

// Builtin returns a registry holding the demo suites:
//
//   - strings: concatenation and formatting.
//   - maps: lookups, inserts and iteration over a prepared map.
//   - channels: asynchronous channel handoffs.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(Strings())
	r.MustRegister(Maps())
	r.MustRegister(Channels())
	return r
}

// Strings benchmarks string building.
func Strings() *Suite {
	parts := make([]string, fragments)
	for i := range parts {
		parts[i] = "fragment-" + strconv.Itoa(i)
	}
	return &Suite{
		Name:        "strings",
		Description: "string concatenation and formatting",
		Items: []sampler.Item{
			&sampler.Sync{
				Name: "concat",
				Run: func() (any, error) {
					var s string
					for _, p := range parts {
						s += p
					}
					return s, nil
				},
			},
			&sampler.Sync{
				Name: "builder",
				Run: func() (any, error) {
					var b strings.Builder
					for _, p := range parts {
						b.WriteString(p)
					}
					return b.String(), nil
				},
			},
			&sampler.Sync{
				Name: "join",
				Run: func() (any, error) {
					return strings.Join(parts, ""), nil
				},
			},
			sampler.Group{
				&sampler.Sync{
					Name: "sprintf",
					Run: func() (any, error) {
						return fmt.Sprintf("%s=%d", parts[0], len(parts)), nil
					},
				},
				&sampler.Sync{
					Name: "itoa",
					Run: func() (any, error) {
						return parts[0] + "=" + strconv.Itoa(len(parts)), nil
					},
				},
			},
		},
	}
}

// Maps benchmarks operations on a map prepared by each sample's set-up.
func Maps() *Suite {
	var (
		m    map[int]int
		keys []int
		next int
	)
	setUp := func() error {
		m = make(map[int]int, mapSize)
		for i := range mapSize {
			m[i] = i * i
		}
		keys = slices.Sorted(maps.Keys(m))
		next = 0
		return nil
	}
	tearDown := func() error {
		m, keys = nil, nil
		return nil
	}
	return &Suite{
		Name:        "maps",
		Description: "map lookups, inserts and iteration",
		Items: []sampler.Item{
			&sampler.Sync{
				Name:     "get",
				SetUp:    setUp,
				TearDown: tearDown,
				Run: func() (any, error) {
					v := m[keys[next%len(keys)]]
					next++
					return v, nil
				},
			},
			&sampler.Sync{
				Name:     "set",
				SetUp:    setUp,
				TearDown: tearDown,
				Run: func() (any, error) {
					m[mapSize+next] = next
					next++
					return nil, nil
				},
			},
			&sampler.Sync{
				Name:     "range",
				SetUp:    setUp,
				TearDown: tearDown,
				Run: func() (any, error) {
					sum := 0
					for _, v := range m {
						sum += v
					}
					return sum, nil
				},
			},
		},
	}
}

// Channels benchmarks asynchronous handoffs. Each operation completes on
// its own goroutine.
func Channels() *Suite {
	return &Suite{
		Name:        "channels",
		Description: "asynchronous channel handoffs",
		Items: []sampler.Item{
			&sampler.Async{
				Name:         "resolved",
				StartRunning: sampler.Resolved,
			},
			&sampler.Async{
				Name: "buffered",
				StartRunning: func() sampler.Completion {
					return sampler.Go("buffered", func() error {
						ch := make(chan int, 1)
						ch <- 1
						<-ch
						return nil
					})
				},
			},
			&sampler.Async{
				Name: "unbuffered",
				StartRunning: func() sampler.Completion {
					return sampler.Go("unbuffered", func() error {
						ch := make(chan int)
						go func() { ch <- 1 }()
						<-ch
						return nil
					})
				},
			},
			&sampler.Sync{
				Name: "select",
				Run: func() (any, error) {
					a, b := make(chan int, 1), make(chan int, 1)
					b <- 2
					select {
					case v := <-a:
						return v, nil
					case v := <-b:
						return v, nil
					}
				},
			},
		},
	}
}
