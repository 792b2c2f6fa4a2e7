// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suites names benchmark suites so the CLI can select them.
package suites

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/AleutianAI/AleutianBench/services/microbench/sampler"
)

var (
	// ErrNilSuite indicates a nil suite was registered.
	ErrNilSuite = errors.New("suite must not be nil")

	// ErrUnnamedSuite indicates a suite without a name was registered.
	ErrUnnamedSuite = errors.New("suite name must not be empty")

	// ErrAlreadyRegistered indicates a suite name is taken.
	ErrAlreadyRegistered = errors.New("suite already registered")

	// ErrNotFound indicates no suite has the requested name.
	ErrNotFound = errors.New("suite not found")
)

// Suite is a named, ordered collection of benchmarks and groups.
type Suite struct {
	Name        string
	Description string
	Items       []sampler.Item
}

// Benchmarks returns the suite flattened in run order.
func (s *Suite) Benchmarks() []sampler.Benchmark {
	return sampler.Flatten(s.Items...)
}

// Registry maps suite names to suites.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu     sync.RWMutex
	suites map[string]*Suite
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{suites: make(map[string]*Suite)}
}

// Register adds a suite under its Name.
//
// Outputs:
//   - error: ErrNilSuite, ErrUnnamedSuite, or ErrAlreadyRegistered wrapped
//     with the name.
func (r *Registry) Register(s *Suite) error {
	if s == nil {
		return ErrNilSuite
	}
	if s.Name == "" {
		return ErrUnnamedSuite
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.suites[s.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, s.Name)
	}
	r.suites[s.Name] = s
	return nil
}

// MustRegister registers a suite and panics on error. Intended for
// initialization.
func (r *Registry) MustRegister(s *Suite) {
	if err := r.Register(s); err != nil {
		panic(fmt.Sprintf("suites: failed to register: %v", err))
	}
}

// Unregister removes the named suite.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.suites[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.suites, name)
	return nil
}

// Get returns the named suite.
func (r *Registry) Get(name string) (*Suite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suites[name]
	return s, ok
}

// Lookup is Get with an ErrNotFound error listing the known names.
func (r *Registry) Lookup(name string) (*Suite, error) {
	if s, ok := r.Get(name); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %v)", ErrNotFound, name, r.List())
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.suites))
	for name := range r.suites {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered suites.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.suites)
}
