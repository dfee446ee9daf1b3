// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/privatedns/src/config"
	"github.com/H0llyW00dzZ/privatedns/src/privatedns"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// startDoTServer serves A answers over DNS-over-TLS with a fresh
// self-signed certificate for dns.example. It returns the port and the
// path of the CA file.
func startDoTServer(t *testing.T) (int, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "dns.example"},
		DNSNames:              []string{"dns.example", "xn--bcher-kva.example"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caPath, certPEM, 0o600))

	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)

	server := &dns.Server{
		Listener: listener,
		Net:      "tcp-tls",
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP("192.0.2.53"),
			})
			_ = w.WriteMsg(m)
		}),
	}
	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return listener.Addr().(*net.TCPAddr).Port, caPath
}

func TestProbe(t *testing.T) {
	port, caPath := startDoTServer(t)
	portArg := fmt.Sprint(port)

	t.Run("opportunistic", func(t *testing.T) {
		out, _, err := execute(t, "probe", "--server", "127.0.0.1", "--port", portArg)
		require.NoError(t, err)
		assert.Contains(t, out, "success")
	})

	t.Run("strict with CA", func(t *testing.T) {
		out, _, err := execute(t, "probe", "--server", "127.0.0.1", "--port", portArg,
			"--hostname", "DNS.example.", "--ca", caPath)
		require.NoError(t, err)
		assert.Contains(t, out, "127.0.0.1 (dns.example)")
		assert.Contains(t, out, "success")
	})

	t.Run("strict internationalized hostname", func(t *testing.T) {
		out, _, err := execute(t, "probe", "--server", "127.0.0.1", "--port", portArg,
			"--hostname", "Bücher.example", "--ca", caPath)
		require.NoError(t, err)
		assert.Contains(t, out, "127.0.0.1 (xn--bcher-kva.example)")
		assert.Contains(t, out, "success")
	})

	t.Run("strict wrong hostname", func(t *testing.T) {
		out, _, err := execute(t, "probe", "--server", "127.0.0.1", "--port", portArg,
			"--hostname", "other.example", "--ca", caPath, "--timeout", "2s")
		require.ErrorIs(t, err, errProbeFailed)
		assert.Contains(t, out, "fail")
	})
}

func TestProbeRejectsBadInput(t *testing.T) {
	_, _, err := execute(t, "probe", "--server", "dns.google")
	assert.ErrorIs(t, err, privatedns.ErrInvalidArgument)

	_, _, err = execute(t, "probe", "--server", "8.8.8.8", "--hostname", "bad host")
	assert.ErrorIs(t, err, privatedns.ErrInvalidArgument)

	_, _, err = execute(t, "probe", "--server", "8.8.8.8", "--hostname", ".")
	assert.ErrorIs(t, err, privatedns.ErrInvalidArgument)

	_, _, err = execute(t, "probe", "--server", "8.8.8.8", "--ca", "ca.pem")
	assert.ErrorIs(t, err, privatedns.ErrInvalidArgument)

	_, _, err = execute(t, "probe")
	assert.Error(t, err, "--server is required")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "privatedns.yaml")
	// No network needs a server dialed: 1 is strict without servers,
	// 2 is off.
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log_level: error
networks:
  - id: 1
    hostname: dns.example
  - id: 2
`), 0o600))
	xlsxPath := filepath.Join(dir, "status.xlsx")

	out, _, err := execute(t, "validate", "-c", cfgPath, "--timeout", "5s",
		"--xlsx", xlsxPath, "--dump", "--metrics")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{"NetId", "Mode", "Server", "Hostname", "Status", "Updated"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "strict", "-", "-", "-", "-"}, strings.Fields(lines[1]))
	assert.NotContains(t, out, "\n2 ", "an off network has no state")
	assert.Contains(t, out, "NetId 1")
	assert.Contains(t, out, "privatedns_workers_live 0")
	assert.FileExists(t, xlsxPath)
}

func TestValidateConfigErrors(t *testing.T) {
	_, _, err := execute(t, "validate")
	assert.Error(t, err, "--config is required")

	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("networks:\n  - id: 1\n    servers: [dns.google]\n"), 0o600))

	_, _, err = execute(t, "validate", "-c", cfgPath)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "probe", "--server", "8.8.8.8")
	assert.Error(t, err)
}
