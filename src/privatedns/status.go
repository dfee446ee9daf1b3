// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"sort"
	"time"
)

// PrivacyMode is the Private DNS mode of a network.
type PrivacyMode int

const (
	// ModeOff means DNS-over-TLS is not used on the network.
	ModeOff PrivacyMode = iota

	// ModeOpportunistic uses validated servers when available and
	// silently falls back otherwise. Failures are not retried.
	ModeOpportunistic

	// ModeStrict only accepts servers matching the pinned hostname.
	// Failures are retried with backoff.
	ModeStrict
)

// String returns the lowercase name of the mode.
func (m PrivacyMode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOpportunistic:
		return "opportunistic"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// modeFor derives the mode from a configuration. OFF is never chosen
// explicitly: it is what an empty hostname with no servers means.
func modeFor(hostname string, servers int) PrivacyMode {
	switch {
	case hostname != "":
		return ModeStrict
	case servers > 0:
		return ModeOpportunistic
	default:
		return ModeOff
	}
}

// ValidationStatus is the trust state of one server on one network.
type ValidationStatus int

const (
	// StatusInProcess means a validation attempt is pending or running.
	StatusInProcess ValidationStatus = iota

	// StatusSuccess means the server passed validation.
	StatusSuccess

	// StatusFail means the last validation attempt failed.
	StatusFail

	// StatusUnknownServer is returned for a server the network does not track.
	StatusUnknownServer

	// StatusUnknownNetID is returned for a network with no Private DNS state.
	StatusUnknownNetID
)

// String returns the name of the status.
func (s ValidationStatus) String() string {
	switch s {
	case StatusInProcess:
		return "in_process"
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "fail"
	case StatusUnknownServer:
		return "unknown_server"
	case StatusUnknownNetID:
		return "unknown_netid"
	default:
		return "invalid"
	}
}

// Status is a read-only snapshot of a network's Private DNS state.
type Status struct {
	// Mode is the privacy mode of the network.
	Mode PrivacyMode

	// Servers maps each configured server to its validation status.
	// It is empty when Mode is ModeOff.
	Servers map[AddressKey]ValidationStatus

	identities map[AddressKey]ServerIdentity
	updated    map[AddressKey]time.Time
}

// ValidatedServers returns the identities of all servers whose
// status is [StatusSuccess], ordered by address.
func (s Status) ValidatedServers() []ServerIdentity {
	var out []ServerIdentity
	for key, st := range s.Servers {
		if st == StatusSuccess {
			out = append(out, s.identities[key])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Compare(out[j].Address) < 0
	})
	return out
}

// Addresses returns the tracked server addresses in sorted order.
func (s Status) Addresses() []AddressKey {
	keys := make([]AddressKey, 0, len(s.Servers))
	for key := range s.Servers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys
}

// Identity returns the full identity stored for a tracked server.
func (s Status) Identity(key AddressKey) (ServerIdentity, bool) {
	id, ok := s.identities[key]
	return id, ok
}

// UpdatedAt returns when the status of a tracked server last changed.
func (s Status) UpdatedAt(key AddressKey) (time.Time, bool) {
	t, ok := s.updated[key]
	return t, ok
}
