// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

const (
	// DoTPort is the well-known DNS-over-TLS port (RFC 7858).
	DoTPort = 853

	// ProtocolTCP is the only transport protocol used for DoT servers.
	ProtocolTCP = "tcp"

	defaultConnectTimeout = 127 * time.Second
	minConnectTimeout     = time.Second
)

// AddressKey identifies a server by its socket address only.
// It is used to deduplicate workers and tracker entries.
type AddressKey netip.AddrPort

// ParseAddressKey parses a numeric host (IPv4, or IPv6 with an optional
// zone) and returns its key on the DoT port.
func ParseAddressKey(s string) (AddressKey, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return AddressKey{}, fmt.Errorf("%w: server address %q: %v", ErrInvalidArgument, s, err)
	}
	return AddressKey(netip.AddrPortFrom(addr, DoTPort)), nil
}

// AddrPort returns the key as a [netip.AddrPort].
func (k AddressKey) AddrPort() netip.AddrPort { return netip.AddrPort(k) }

// Addr returns the IP address of the key.
func (k AddressKey) Addr() netip.Addr { return netip.AddrPort(k).Addr() }

// String returns the host address without the port, the way servers are
// configured and reported.
func (k AddressKey) String() string { return k.Addr().String() }

// Compare orders keys by address, then port.
func (k AddressKey) Compare(other AddressKey) int {
	return netip.AddrPort(k).Compare(netip.AddrPort(other))
}

// FullIdentityKey identifies everything that defines "this server":
// the address, the pinned hostname and the CA override. Two identities
// with the same AddressKey but different FullIdentityKey mean the
// caller reconfigured the server.
type FullIdentityKey struct {
	Address       AddressKey
	Hostname      string
	CACertificate string
}

// ServerIdentity describes one candidate DoT endpoint.
// It is a value type and is never mutated after construction.
type ServerIdentity struct {
	// Address is the socket address of the server.
	Address AddressKey

	// Protocol is the transport protocol, always "tcp".
	Protocol string

	// Hostname is the pinned TLS hostname. Empty in opportunistic mode.
	Hostname string

	// CACertificate is an optional PEM-encoded CA used instead of
	// the system roots. Restricted to privileged callers.
	CACertificate string

	// ConnectTimeout bounds one validation attempt.
	ConnectTimeout time.Duration
}

// AddressKey returns the address-only key of the server.
func (s ServerIdentity) AddressKey() AddressKey { return s.Address }

// FullKey returns the full identity key of the server.
func (s ServerIdentity) FullKey() FullIdentityKey {
	return FullIdentityKey{
		Address:       s.Address,
		Hostname:      s.Hostname,
		CACertificate: s.CACertificate,
	}
}

// String returns the server address and hostname for logs.
func (s ServerIdentity) String() string {
	if s.Hostname == "" {
		return s.Address.String()
	}
	return s.Address.String() + " (" + s.Hostname + ")"
}

// parseServers converts every address string into an identity before
// anything else happens, so a single malformed entry rejects the whole
// configuration.
func parseServers(servers []string, hostname, caCert string, timeout time.Duration) ([]ServerIdentity, error) {
	identities := make([]ServerIdentity, 0, len(servers))
	seen := make(map[AddressKey]struct{}, len(servers))
	for _, s := range servers {
		key, err := ParseAddressKey(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		identities = append(identities, ServerIdentity{
			Address:        key,
			Protocol:       ProtocolTCP,
			Hostname:       hostname,
			CACertificate:  caCert,
			ConnectTimeout: timeout,
		})
	}
	return identities, nil
}
