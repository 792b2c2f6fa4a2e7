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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/microbench/config"
	"github.com/AleutianAI/AleutianBench/services/microbench/suites"
)

// version is reported in telemetry resources.
var version = "0.1.0"

// app carries the state shared by every subcommand.
type app struct {
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	logJSON    bool
	logDir     string

	cfg      *config.File
	logger   *logging.Logger
	out      *ux.Printer
	registry *suites.Registry
}

func (a *app) slog() *slog.Logger {
	return a.logger.Slog()
}

// execute runs the command line args and closes the logger afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr, registry: suites.Builtin()}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		err = errors.Join(err, a.logger.Close())
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "microbench",
		Short:         "Run and compare micro-benchmark suites",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.logJSON, "log-json", false, "write logs as JSON")
	flags.StringVar(&a.logDir, "log-dir", "", "also append JSON logs to a file in this directory")

	root.AddCommand(
		newRunCmd(a),
		newReportCmd(a),
		newCompareCmd(a),
		newListCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger. Flags win over the
// file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Logging.JSON = a.logJSON
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.Logging.Dir = a.logDir
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		JSON:    cfg.Logging.JSON,
		Service: "microbench",
		LogDir:  cfg.Logging.Dir,
		Output:  a.stderr,
	})
	a.out = ux.NewPrinter(a.stdout)
	return nil
}
