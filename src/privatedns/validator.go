// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"

	"github.com/miekg/dns"
)

// Validator performs one blocking attempt to connect to a server and
// establish TLS trust. It must not retry internally; the caller owns the
// retry policy. The attempt is bounded by server.ConnectTimeout.
type Validator interface {
	Validate(ctx context.Context, server ServerIdentity, netID int, mark uint32) bool
}

// ValidatorFunc adapts a function to the [Validator] interface.
type ValidatorFunc func(ctx context.Context, server ServerIdentity, netID int, mark uint32) bool

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, server ServerIdentity, netID int, mark uint32) bool {
	return f(ctx, server, netID, mark)
}

// DoTValidator is the default [Validator]. It opens a DNS-over-TLS
// connection to the server and sends one probe query over it.
//
// Without a pinned hostname (opportunistic mode) any certificate is
// accepted. With a hostname (strict mode) the certificate must be valid
// for it, chained to the system roots or to the server's CA override.
type DoTValidator struct {
	// ProbeZone is the zone the probe names are generated under.
	// Defaults to metric.gstatic.com.
	ProbeZone string

	// Logger receives per-attempt diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewDoTValidator creates a [DoTValidator] with default settings.
func NewDoTValidator() *DoTValidator {
	return &DoTValidator{}
}

// Validate implements [Validator].
func (v *DoTValidator) Validate(ctx context.Context, server ServerIdentity, netID int, mark uint32) bool {
	logger := v.logger().With("netid", netID, "server", server.Address.String(), "hostname", server.Hostname)

	tlsConfig, err := tlsConfigFor(server)
	if err != nil {
		logger.Warn("private DNS validation failed", "error", err)
		return false
	}

	timeout := server.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	client := &dns.Client{
		Net:       "tcp-tls",
		Timeout:   timeout,
		TLSConfig: tlsConfig,
		Dialer: &net.Dialer{
			Timeout: timeout,
			Control: markControl(mark),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	zone := v.ProbeZone
	if zone == "" {
		zone = defaultProbeZone
	}

	resp, err := exchangeProbe(ctx, client, probeName(zone), server.Address.AddrPort().String())
	if err == nil {
		err = checkProbeReply(resp)
	}
	if err != nil {
		logger.Debug("private DNS validation failed", "error", err)
		return false
	}

	logger.Debug("private DNS validation succeeded")
	return true
}

func (v *DoTValidator) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// tlsConfigFor builds the client TLS configuration for one server.
func tlsConfigFor(server ServerIdentity) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if server.Hostname == "" {
		// Opportunistic mode: encryption without authentication.
		cfg.InsecureSkipVerify = true
		return cfg, nil
	}

	cfg.ServerName = server.Hostname
	if server.CACertificate != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(server.CACertificate)) {
			return nil, errors.New("CA certificate override contains no usable PEM certificate")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
