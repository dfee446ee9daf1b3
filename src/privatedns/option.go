// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Option is a functional option for configuring a [Coordinator].
type Option func(*Coordinator)

// WithValidator sets the [Validator] used by validation workers.
// The default is a [DoTValidator].
//
// Passing nil is a no-op.
func WithValidator(v Validator) Option {
	return func(c *Coordinator) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithStats sets the [StatsPersister] that receives every configured
// server list. The default is an in-memory [MemoryStats].
//
// Passing nil is a no-op.
func WithStats(s StatsPersister) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.stats = s
		}
	}
}

// WithLogger sets the structured logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for backoff sleeps and status
// timestamps. Tests pass a [clock.Mock] to drive reevaluation timing.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithBackoff sets the strict-mode reevaluation policy.
// The default is [DefaultBackoff]: 60s, doubling, capped at one hour.
func WithBackoff(b Backoff) Option {
	return func(c *Coordinator) {
		c.backoff = b
	}
}

// WithConnectTimeout sets the timeout of one validation attempt.
// The default is 127 seconds. Values below one second are raised to
// one second.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.connectTimeout = max(d, minConnectTimeout)
	}
}

// WithMaxWorkers caps the number of live validation workers across all
// networks. A [Coordinator.Set] that would exceed the cap fails with
// [ErrWorkerLimit]. The default is 256.
func WithMaxWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithListener registers an [EventListener] at construction time.
// Use [Coordinator.AddListener] to register listeners later.
func WithListener(l EventListener) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.initialListeners = append(c.initialListeners, l)
		}
	}
}

// WithProbeZone sets the zone the default [DoTValidator] generates probe
// names under. It has no effect if a custom validator is set via
// [WithValidator].
func WithProbeZone(zone string) Option {
	return func(c *Coordinator) {
		c.probeZone = zone
	}
}
