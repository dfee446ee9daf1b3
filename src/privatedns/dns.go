// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// defaultProbeZone is a zone whose names are answered with an A record
// by public resolvers, so a well-formed answer proves the server works.
const defaultProbeZone = "metric.gstatic.com."

// probeName returns a fresh query name under zone. The random label
// defeats caches between the client and the server.
func probeName(zone string) string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		copy(b[:], "static")
	}
	return hex.EncodeToString(b[:]) + "-dnsotls-ds." + dns.Fqdn(strings.TrimPrefix(zone, "."))
}

// exchangeProbe sends an A query for name to server (ip:port) and
// returns the reply. It respects context cancellation.
func exchangeProbe(ctx context.Context, client *dns.Client, name, server string) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	// Create a channel to receive the result so we can
	// respect context cancellation.
	type dnsResult struct {
		msg *dns.Msg
		err error
	}
	ch := make(chan dnsResult, 1)

	go func() {
		resp, _, err := client.ExchangeContext(ctx, msg, server)
		ch <- dnsResult{msg: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("probe %s: %w", server, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		return result.msg, nil
	}
}

// checkProbeReply accepts a reply that proves a working server: NOERROR
// with at least one answer record.
func checkProbeReply(msg *dns.Msg) error {
	if msg == nil {
		return errors.New("empty reply")
	}
	if msg.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("unexpected response code: %s", dns.RcodeToString[msg.Rcode])
	}
	if len(msg.Answer) == 0 {
		return errors.New("reply contained no answers")
	}
	return nil
}
