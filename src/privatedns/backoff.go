// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import "time"

// Default strict-mode reevaluation backoff.
const (
	defaultBackoffInitial    = 60 * time.Second
	defaultBackoffMax        = 3600 * time.Second
	defaultBackoffMultiplier = 2
)

// Backoff is a stateless exponential backoff policy. Each worker draws
// its own sequence from it with [Backoff.Sequence].
type Backoff struct {
	// Initial is the first interval.
	Initial time.Duration

	// Max caps every interval. The sequence ends once an interval
	// equal to Max has been handed out.
	Max time.Duration

	// Multiplier grows the interval after each step. Values below 2
	// are treated as 2.
	Multiplier int
}

// DefaultBackoff returns the strict-mode policy: 60s, doubling, capped
// at one hour.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    defaultBackoffInitial,
		Max:        defaultBackoffMax,
		Multiplier: defaultBackoffMultiplier,
	}
}

// Sequence starts a new interval sequence.
func (b Backoff) Sequence() *BackoffSequence {
	if b.Initial <= 0 {
		b.Initial = defaultBackoffInitial
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 2 {
		b.Multiplier = defaultBackoffMultiplier
	}
	return &BackoffSequence{policy: b, next: b.Initial}
}

// BackoffSequence hands out the intervals of one [Backoff] policy.
// It is not safe for concurrent use.
type BackoffSequence struct {
	policy    Backoff
	next      time.Duration
	exhausted bool
}

// HasNext reports whether another interval remains.
func (s *BackoffSequence) HasNext() bool { return !s.exhausted }

// Next returns the next interval. After the capped interval has been
// returned, HasNext reports false and Next keeps returning the cap.
func (s *BackoffSequence) Next() time.Duration {
	cur := s.next
	if cur >= s.policy.Max {
		s.exhausted = true
		return s.policy.Max
	}
	// Cap before multiplying would overflow.
	if cur > s.policy.Max/time.Duration(s.policy.Multiplier) {
		s.next = s.policy.Max
	} else {
		s.next = min(cur*time.Duration(s.policy.Multiplier), s.policy.Max)
	}
	return cur
}
