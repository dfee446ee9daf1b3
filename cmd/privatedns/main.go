// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Command privatedns validates DNS-over-TLS servers the way a network
// stack does before using them for Private DNS.
//
// Usage:
//
//	privatedns validate -c privatedns.yaml [--timeout 2m] [--xlsx status.xlsx]
//	privatedns probe --server 8.8.8.8 --hostname dns.google
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
