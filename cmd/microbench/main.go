// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command microbench runs, reports and compares micro-benchmark suites.
//
//	microbench list
//	microbench run --suite maps --samples 50 -o maps.json
//	microbench report maps.json
//	microbench compare before.json after.json --dimension time
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/AleutianAI/AleutianBench/pkg/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		ux.NewPrinter(os.Stderr).Error(err.Error())
		stop()
		os.Exit(1)
	}
}
