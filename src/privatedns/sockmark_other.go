// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

//go:build !linux

package privatedns

import "syscall"

// markControl is a no-op on platforms without SO_MARK.
func markControl(uint32) func(network, address string, c syscall.RawConn) error {
	return nil
}
