// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"strings"

	"golang.org/x/net/idna"
)

// IsValidHostname reports whether hostname is a syntactically valid
// TLS server name.
//
// A valid hostname has at least two labels separated by dots, each label
// is 1-63 characters long, contains only ASCII letters, digits, or
// hyphens, and does not start or end with a hyphen. The last label must
// not be all digits. Internationalized names are checked in their ASCII
// (punycode) form.
func IsValidHostname(hostname string) bool {
	hostname = NormalizeHostname(hostname)
	if hostname == "" || len(hostname) > 253 {
		return false
	}

	labels := strings.Split(hostname, ".")
	if len(labels) < 2 {
		return false
	}

	for i, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}

		// Labels must not start or end with a hyphen.
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}

		digits := 0
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z':
				// ok
			case c >= '0' && c <= '9':
				digits++
			case c == '-':
				// ok
			default:
				return false
			}
		}

		if i == len(labels)-1 && digits == len(label) {
			return false // TLD must not be numeric.
		}
	}

	return true
}

// NormalizeHostname trims whitespace and a trailing dot, lowercases the
// name and converts it to its ASCII form. Names the IDNA profile rejects
// are kept lowercased as given; the TLS handshake will reject them.
func NormalizeHostname(hostname string) string {
	hostname = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
	if hostname == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(hostname); err == nil {
		return ascii
	}
	return hostname
}
