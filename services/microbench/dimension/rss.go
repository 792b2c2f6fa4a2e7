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
	"os"
	"sync"

	"github.com/shirou/gopsutil/process"
)

var (
	selfOnce sync.Once
	self     *process.Process
)

// rssBytes returns the resident set size of the current process, or 0 when
// the process table cannot be read.
func rssBytes() uint64 {
	selfOnce.Do(func() {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err == nil {
			self = p
		}
	})
	if self == nil {
		return 0
	}
	info, err := self.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
