// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

//go:build linux

package privatedns

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// markControl returns a dialer Control function that tags the socket
// with mark, so policy routing sends it out of the right network.
// A zero mark leaves the socket untouched.
func markControl(mark uint32) func(network, address string, c syscall.RawConn) error {
	if mark == 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark))
		})
		if err != nil {
			return err
		}
		if sockErr != nil {
			return fmt.Errorf("set SO_MARK 0x%x: %w", mark, sockErr)
		}
		return nil
	}
}
