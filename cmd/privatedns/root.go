// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/privatedns/src/logging"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	logLevel string
	logger   *slog.Logger
}

// setLogger installs a logger for level, writing to the command's
// error stream.
func (o *rootOptions) setLogger(cmd *cobra.Command, level string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	o.logger = logging.New(cmd.ErrOrStderr(), lvl)
	slog.SetDefault(o.logger)
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "privatedns",
		Short:         "Validate DNS-over-TLS servers for Private DNS",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setLogger(cmd, opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newProbeCmd(opts))
	return cmd
}
