// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package privatedns

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServerName is the name the test certificate is issued for.
const testServerName = "dns.example"

// selfSignedCert returns a certificate for testServerName that is its own
// CA, plus its PEM encoding.
func selfSignedCert(t *testing.T) (tls.Certificate, string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Hello from Go (DNS over TLS RFC 7858)"},
			CommonName:   testServerName,
		},
		DNSNames:              []string{testServerName},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert, string(certPEM)
}

// startDoTServer starts a DNS-over-TLS server on a random local port and
// returns its address key and CA certificate.
func startDoTServer(t *testing.T, handler dns.HandlerFunc) (AddressKey, string) {
	t.Helper()

	cert, caPEM := selfSignedCert(t)
	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
	})
	require.NoError(t, err)

	server := &dns.Server{
		Listener: listener,
		Handler:  handler,
		Net:      "tcp-tls",
	}

	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go func() {
		if err := server.ActivateAndServe(); err != nil {
			select {
			case <-started:
			default:
				t.Logf("DoT server error: %v", err)
			}
		}
	}()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	addr, err := netip.ParseAddrPort(listener.Addr().String())
	require.NoError(t, err)
	return AddressKey(addr), caPEM
}

// answerA replies to every query with one A record.
func answerA(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Answer = append(m.Answer, &dns.A{
		Hdr: dns.RR_Header{
			Name:   r.Question[0].Name,
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    60,
		},
		A: net.ParseIP("192.0.2.53"),
	})
	_ = w.WriteMsg(m)
}

func testIdentity(addr AddressKey, hostname, caPEM string) ServerIdentity {
	return ServerIdentity{
		Address:        addr,
		Protocol:       ProtocolTCP,
		Hostname:       hostname,
		CACertificate:  caPEM,
		ConnectTimeout: 5 * time.Second,
	}
}

func TestDoTValidator(t *testing.T) {
	addr, caPEM := startDoTServer(t, answerA)
	v := &DoTValidator{Logger: discardLogger()}

	tests := []struct {
		name     string
		hostname string
		caPEM    string
		want     bool
	}{
		{"opportunistic accepts self-signed", "", "", true},
		{"opportunistic ignores CA override", "", "garbage", true},
		{"strict with CA override", testServerName, caPEM, true},
		{"strict wrong hostname", "other.example", caPEM, false},
		{"strict without CA uses system roots", testServerName, "", false},
		{"strict with unusable CA", testServerName, "-----BEGIN CERTIFICATE-----\nnope\n-----END CERTIFICATE-----\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(context.Background(), testIdentity(addr, tt.hostname, tt.caPEM), 100, 0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoTValidatorProbeReply(t *testing.T) {
	t.Run("no answers", func(t *testing.T) {
		addr, _ := startDoTServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			_ = w.WriteMsg(m)
		})
		v := &DoTValidator{Logger: discardLogger()}
		assert.False(t, v.Validate(context.Background(), testIdentity(addr, "", ""), 1, 0))
	})

	t.Run("servfail", func(t *testing.T) {
		addr, _ := startDoTServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeServerFailure)
			_ = w.WriteMsg(m)
		})
		v := &DoTValidator{Logger: discardLogger()}
		assert.False(t, v.Validate(context.Background(), testIdentity(addr, "", ""), 1, 0))
	})

	t.Run("probe name under custom zone", func(t *testing.T) {
		var (
			mu    sync.Mutex
			names []string
		)
		addr, _ := startDoTServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
			mu.Lock()
			names = append(names, r.Question[0].Name)
			mu.Unlock()
			answerA(w, r)
		})

		v := &DoTValidator{ProbeZone: "probe.test", Logger: discardLogger()}
		require.True(t, v.Validate(context.Background(), testIdentity(addr, "", ""), 1, 0))
		require.True(t, v.Validate(context.Background(), testIdentity(addr, "", ""), 1, 0))

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, names, 2)
		for _, name := range names {
			assert.True(t, strings.HasSuffix(name, "-dnsotls-ds.probe.test."), name)
		}
		assert.NotEqual(t, names[0], names[1], "probe names must not repeat")
	})
}

func TestDoTValidatorUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr, err := netip.ParseAddrPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	v := &DoTValidator{Logger: discardLogger()}
	id := testIdentity(AddressKey(addr), "", "")
	id.ConnectTimeout = time.Second

	start := time.Now()
	assert.False(t, v.Validate(context.Background(), id, 1, 0))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDoTValidatorCanceledContext(t *testing.T) {
	addr, _ := startDoTServer(t, answerA)
	v := NewDoTValidator()
	v.Logger = discardLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, v.Validate(ctx, testIdentity(addr, "", ""), 1, 0))
}

func TestCoordinatorWithDoTValidator(t *testing.T) {
	addr, caPEM := startDoTServer(t, answerA)
	v := &DoTValidator{Logger: discardLogger()}

	// The coordinator always dials port 853, so route the identity it
	// hands out to the test server's real port.
	redirect := ValidatorFunc(func(ctx context.Context, server ServerIdentity, netID int, mark uint32) bool {
		server.Address = addr
		return v.Validate(ctx, server, netID, mark)
	})

	c := New(WithValidator(redirect), WithLogger(discardLogger()))
	defer c.Close()

	require.NoError(t, c.Set(1, 0, []string{"127.0.0.1"}, "DNS.example.", caPEM))
	waitIdle(t, c)
	assert.Equal(t, StatusSuccess, c.ServerStatus(1, "127.0.0.1"))

	require.NoError(t, c.Set(2, 0, []string{"127.0.0.1"}, "", ""))
	waitIdle(t, c)
	assert.Equal(t, StatusSuccess, c.ServerStatus(2, "127.0.0.1"))
}

func TestTLSConfigFor(t *testing.T) {
	_, caPEM := selfSignedCert(t)

	t.Run("opportunistic", func(t *testing.T) {
		cfg, err := tlsConfigFor(ServerIdentity{})
		require.NoError(t, err)
		assert.True(t, cfg.InsecureSkipVerify)
		assert.Empty(t, cfg.ServerName)
		assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	})

	t.Run("strict system roots", func(t *testing.T) {
		cfg, err := tlsConfigFor(ServerIdentity{Hostname: "dns.google"})
		require.NoError(t, err)
		assert.False(t, cfg.InsecureSkipVerify)
		assert.Equal(t, "dns.google", cfg.ServerName)
		assert.Nil(t, cfg.RootCAs)
	})

	t.Run("strict CA override", func(t *testing.T) {
		cfg, err := tlsConfigFor(ServerIdentity{Hostname: testServerName, CACertificate: caPEM})
		require.NoError(t, err)
		assert.NotNil(t, cfg.RootCAs)
	})

	t.Run("strict bad CA", func(t *testing.T) {
		_, err := tlsConfigFor(ServerIdentity{Hostname: testServerName, CACertificate: "not pem"})
		assert.Error(t, err)
	})
}

func TestMarkControlZero(t *testing.T) {
	assert.Nil(t, markControl(0))
}
