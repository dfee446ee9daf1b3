// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidHostname(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		want     bool
	}{
		// Valid hostnames
		{"public resolver", "dns.google", true},
		{"many labels", "one.one.one.one", true},
		{"case insensitive", "DNS.Google", true},
		{"FQDN with trailing dot", "dns.google.", true},
		{"surrounding spaces", "  dns.example  ", true},
		{"hyphenated label", "dns-over-tls.example", true},
		{"numeric label", "1dot1dot1dot1.cloudflare-dns.com", true},
		{"punycode TLD", "dns.xn--p1ai", true},
		{"unicode converted to punycode", "bücher.example", true},

		// Invalid hostnames
		{"empty string", "", false},
		{"single label", "localhost", false},
		{"start with hyphen", "-dns.example", false},
		{"end with hyphen", "dns-.example", false},
		{"consecutive dots", "dns..example", false},
		{"invalid char", "dn!s.example", false},
		{"underscore", "dns_over_tls.example", false},
		{"numeric TLD", "dns.123", false},
		{"ip address", "8.8.8.8", false},
		{"too long label", strings.Repeat("a", 64) + ".example", false},
		{"too long name", strings.Repeat("abcdefghi.", 26) + "example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidHostname(tt.hostname), tt.hostname)
		})
	}
}

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{".", ""},
		{"dns.google", "dns.google"},
		{"DNS.Google.", "dns.google"},
		{" dns.example ", "dns.example"},
		{"bücher.example", "xn--bcher-kva.example"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHostname(tt.in))
		})
	}
}
