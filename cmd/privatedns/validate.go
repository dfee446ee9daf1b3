// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/privatedns/src/config"
	"github.com/H0llyW00dzZ/privatedns/src/privatedns"
	"github.com/H0llyW00dzZ/privatedns/src/report"
)

type validateOptions struct {
	configPath string
	timeout    time.Duration
	xlsxPath   string
	dump       bool
	metrics    bool
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Apply every network of a configuration file and report the validation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "how long to wait for validation to settle")
	flags.StringVar(&opts.xlsxPath, "xlsx", "", "also write the status report to this Excel file")
	flags.BoolVar(&opts.dump, "dump", false, "print the coordinator state after the report")
	flags.BoolVar(&opts.metrics, "metrics", false, "print metrics in Prometheus text format after the report")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runValidate(cmd *cobra.Command, root *rootOptions, opts *validateOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// The file's level applies unless --log-level was given.
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		if err := root.setLogger(cmd, cfg.LogLevel); err != nil {
			return err
		}
	}
	logger := root.logger

	c := privatedns.New(append(cfg.CoordinatorOptions(), privatedns.WithLogger(logger))...)
	defer c.Close()

	svc := privatedns.NewService(c, privatedns.WithServiceLogger(logger))
	caller := privatedns.Caller{UID: os.Getuid(), PID: os.Getpid()}

	var errs *multierror.Error
	for _, n := range cfg.Networks {
		if err := svc.SetResolverConfiguration(caller, n.ResolverConfig()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("network %d: %w", n.ID, err))
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		// Strict-mode servers that keep failing stay in backoff.
		logger.Warn("validation did not settle", "timeout", opts.timeout, "error", err)
	}

	out := cmd.OutOrStdout()
	rows := report.Collect(c)
	if err := report.WriteText(out, rows); err != nil {
		return err
	}
	if opts.xlsxPath != "" {
		if err := report.SaveXLSX(opts.xlsxPath, rows); err != nil {
			return err
		}
		logger.Info("wrote status workbook", "path", opts.xlsxPath)
	}
	if opts.dump {
		fmt.Fprintln(out)
		c.Dump(out)
	}
	if opts.metrics {
		fmt.Fprintln(out)
		c.WritePrometheus(out)
	}

	return errs.ErrorOrNil()
}
