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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianBench/services/microbench/report"
	"github.com/AleutianAI/AleutianBench/services/microbench/results"
)

func newReportCmd(a *app) *cobra.Command {
	var dims []string
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Print the report of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := results.LoadFile(args[0])
			if err != nil {
				return err
			}
			result := f.SuiteResult()

			title := result.Name
			if f.Host != nil && f.Host.CPUModel != "" {
				title = fmt.Sprintf("%s on %s", title, f.Host.CPUModel)
			}
			a.out.Title(title)
			return report.Report(result, a.out.Table(), dims...)
		},
	}
	cmd.Flags().StringSliceVar(&dims, "dimensions", nil, "dimensions to print (default: all measured)")
	return cmd
}
