// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package privatedns coordinates Private DNS (DNS-over-TLS, RFC 7858)
// configuration and trust validation per network.
//
// For every network it tracks the privacy mode (off, opportunistic or
// strict), the configured DoT servers and the validation status of each
// server. Validation runs in background workers, so neither the caller
// configuring a network nor the resolver reading its status ever waits
// on network I/O.
//
// # Modes
//
// The mode is derived from the configuration passed to [Coordinator.Set]:
//
//	hostname   servers     mode
//	""         empty       off            (all state for the network is dropped)
//	""         non-empty   opportunistic  (any certificate, failures are final)
//	"name"     any         strict         (certificate must match, failures retried)
//
// # Quick Start
//
//	c := privatedns.New()
//	defer c.Close()
//
//	// Strict mode: validate 8.8.8.8:853 as dns.google on network 100.
//	if err := c.Set(100, 0, []string{"8.8.8.8", "8.8.4.4"}, "dns.google", ""); err != nil {
//	    log.Fatal(err)
//	}
//
//	st := c.GetStatus(100)
//	for _, addr := range st.Addresses() {
//	    fmt.Printf("%-16s %s\n", addr, st.Servers[addr])
//	}
//
// # Validation Workers
//
// A worker is spawned for every server that is new, previously failed, or
// whose hostname or CA certificate changed. At most one worker is
// registered per (network, address). A worker calls the [Validator],
// reports the result, and in strict mode backs off and retries after a
// failure: 60s, 120s, ... up to one hour, after which it gives up until
// the network is configured again.
//
// Results that no longer match the configuration are discarded: the
// configuration always wins over in-flight results. Workers are never
// interrupted by [Coordinator.Clear]; they notice on their next report.
// [Coordinator.Wait] joins workers and [Coordinator.Close] stops them.
//
// # Collaborators
//
// The coordinator talks to the outside world through small interfaces:
//
//   - [Validator]: one blocking DoT handshake and probe query (default [DoTValidator])
//   - [StatsPersister]: receives every configured server list (default [MemoryStats])
//   - [EventListener]: notified of every recorded validation outcome
//
// # Errors
//
// Sentinel errors for use with [errors.Is]:
//
//	var (
//	    ErrInvalidArgument  // A server address is not a numeric IP
//	    ErrPermissionDenied // CA override from an unprivileged caller (see [Service])
//	    ErrWorkerLimit      // Too many live validation workers
//	    ErrClosed           // The coordinator was closed
//	    ErrInternalPanic    // A validator panicked; counted as a failed attempt
//	)
package privatedns
