// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/privatedns/src/privatedns"
)

// errProbeFailed is returned when the server did not pass validation.
var errProbeFailed = errors.New("privatedns: probe failed")

type probeOptions struct {
	server   string
	hostname string
	caFile   string
	port     uint16
	timeout  time.Duration
	mark     uint32
	zone     string
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a single validation attempt against one server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "", "numeric IP address of the server")
	flags.StringVar(&opts.hostname, "hostname", "", "pinned TLS hostname (strict mode); empty means opportunistic")
	flags.StringVar(&opts.caFile, "ca", "", "PEM file with the CA to trust instead of the system roots")
	flags.Uint16Var(&opts.port, "port", privatedns.DoTPort, "server port")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "attempt timeout")
	flags.Uint32Var(&opts.mark, "mark", 0, "socket mark (SO_MARK, linux only)")
	flags.StringVar(&opts.zone, "zone", "", "zone to generate the probe name under")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func runProbe(cmd *cobra.Command, root *rootOptions, opts *probeOptions) error {
	key, err := privatedns.ParseAddressKey(opts.server)
	if err != nil {
		return err
	}

	hostname := privatedns.NormalizeHostname(opts.hostname)
	if opts.hostname != "" && !privatedns.IsValidHostname(hostname) {
		return fmt.Errorf("%w: invalid hostname %q", privatedns.ErrInvalidArgument, opts.hostname)
	}

	var caPEM string
	if opts.caFile != "" {
		if hostname == "" {
			return fmt.Errorf("%w: --ca requires --hostname", privatedns.ErrInvalidArgument)
		}
		data, err := os.ReadFile(opts.caFile)
		if err != nil {
			return err
		}
		caPEM = string(data)
	}

	server := privatedns.ServerIdentity{
		Address:        privatedns.AddressKey(netip.AddrPortFrom(key.Addr(), opts.port)),
		Protocol:       privatedns.ProtocolTCP,
		Hostname:       hostname,
		CACertificate:  caPEM,
		ConnectTimeout: opts.timeout,
	}

	v := &privatedns.DoTValidator{ProbeZone: opts.zone, Logger: root.logger}
	ok := v.Validate(cmd.Context(), server, 0, opts.mark)

	status := privatedns.StatusFail
	if ok {
		status = privatedns.StatusSuccess
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s port %d: %s\n", server, opts.port, status)

	if !ok {
		return errProbeFailed
	}
	return nil
}
