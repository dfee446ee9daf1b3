// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import "errors"

// Sentinel errors for the privatedns package.
var (
	// ErrInvalidArgument is returned by [Coordinator.Set] when a server
	// address is not a numeric IP address. No state is modified.
	ErrInvalidArgument = errors.New("privatedns: invalid argument")

	// ErrPermissionDenied is returned when a non-privileged caller
	// supplies a CA certificate override.
	ErrPermissionDenied = errors.New("privatedns: permission denied")

	// ErrWorkerLimit is returned when applying a configuration would
	// exceed the maximum number of live validation workers.
	ErrWorkerLimit = errors.New("privatedns: validation worker limit reached")

	// ErrClosed is returned by operations on a closed [Coordinator].
	ErrClosed = errors.New("privatedns: coordinator closed")

	// ErrInternalPanic is recorded when a panic is recovered inside a
	// validation worker.
	ErrInternalPanic = errors.New("privatedns: internal panic recovered")
)
