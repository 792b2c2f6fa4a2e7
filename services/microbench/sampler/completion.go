// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sampler

// Completion signals the outcome of one asynchronous operation.
//
// Description:
//
//	A Completion resolves exactly once. Receiving nil, or observing the
//	channel closed, is a resolution. Receiving a non-nil error is a
//	rejection, and that error value is what the sample is rejected with.
//	A nil Completion is treated as already resolved.
type Completion <-chan error

// Resolved returns a Completion that has already resolved.
func Resolved() Completion {
	c := make(chan error)
	close(c)
	return c
}

// Rejected returns a Completion that has already rejected with err.
func Rejected(err error) Completion {
	c := make(chan error, 1)
	c <- err
	return c
}

// Go runs fn on a new goroutine and returns a Completion for its result. A
// panic inside fn rejects the Completion with a *PanicError attributed to
// the benchmark name.
func Go(name string, fn func() error) Completion {
	c := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c <- recovered(name, "completion", r)
			}
		}()
		c <- fn()
	}()
	return c
}
