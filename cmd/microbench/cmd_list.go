// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianBench/services/microbench/dimension"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered suites and available dimensions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.out.Title("Suites")
			for _, name := range a.registry.List() {
				s, _ := a.registry.Get(name)
				names := make([]string, 0, len(s.Items))
				for _, b := range s.Benchmarks() {
					names = append(names, b.BenchmarkName())
				}
				a.out.Bullet(name, fmt.Sprintf("%s [%s]", s.Description, strings.Join(names, ", ")))
			}

			a.out.Title("Dimensions")
			dims, err := dimension.Lookup(dimension.BuiltinNames()...)
			if err != nil {
				return err
			}
			for _, d := range dims {
				a.out.Bullet(d.Name(), fmt.Sprintf("%s (%s)", d.DisplayName(), d.Units()))
			}
			return nil
		},
	}
}
