package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/cert"
)

// newTestIdentity generates a self-signed identity for tests.
func newTestIdentity(t *testing.T, name string) *cert.Identity {
	t.Helper()
	id, err := cert.GenerateIdentity(name)
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}
	return id
}

func TestNewServerTLSConfig(t *testing.T) {
	id := newTestIdentity(t, "caster")

	conf, err := NewServerTLSConfig(&TLSConfig{Certificate: id.TLSCertificate()})
	if err != nil {
		t.Fatalf("NewServerTLSConfig() error = %v", err)
	}

	if conf.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", conf.MinVersion)
	}
	if conf.MaxVersion != tls.VersionTLS13 {
		t.Errorf("MaxVersion = %x, want TLS 1.3", conf.MaxVersion)
	}
	if conf.ClientAuth != tls.RequestClientCert {
		t.Errorf("ClientAuth = %v, want RequestClientCert", conf.ClientAuth)
	}
	if !conf.SessionTicketsDisabled {
		t.Error("session tickets should be disabled")
	}

	// Both ALPN protocols offered, commissioning first.
	if len(conf.NextProtos) != 2 || conf.NextProtos[0] != CommissioningALPNProtocol || conf.NextProtos[1] != ALPNProtocol {
		t.Errorf("NextProtos = %v", conf.NextProtos)
	}
}

func TestNewServerTLSConfigNoCert(t *testing.T) {
	if _, err := NewServerTLSConfig(&TLSConfig{}); err == nil {
		t.Error("expected error for missing certificate")
	}
	if _, err := NewServerTLSConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNewClientTLSConfig(t *testing.T) {
	client := newTestIdentity(t, "commissioner")
	server := newTestIdentity(t, "caster")

	conf, err := NewClientTLSConfig(&TLSConfig{
		Certificate:         client.TLSCertificate(),
		ExpectedFingerprint: server.Fingerprint(),
	})
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}

	if conf.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", conf.MinVersion)
	}
	if len(conf.NextProtos) != 1 || conf.NextProtos[0] != ALPNProtocol {
		t.Errorf("NextProtos = %v, want [%s]", conf.NextProtos, ALPNProtocol)
	}
	if !conf.InsecureSkipVerify {
		t.Error("built-in chain verification should be skipped")
	}
	if conf.VerifyPeerCertificate == nil {
		t.Error("fingerprint pin callback should be set")
	}
}

func TestNewClientTLSConfigValidation(t *testing.T) {
	client := newTestIdentity(t, "commissioner")

	if _, err := NewClientTLSConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewClientTLSConfig(&TLSConfig{ExpectedFingerprint: "aa"}); err == nil {
		t.Error("expected error for missing certificate")
	}
	// No pin and no custom verification leaves the peer unauthenticated.
	if _, err := NewClientTLSConfig(&TLSConfig{Certificate: client.TLSCertificate()}); err == nil {
		t.Error("expected error for missing fingerprint")
	}
}

func TestNewCommissioningTLSConfig(t *testing.T) {
	client := newTestIdentity(t, "commissioner")

	conf := NewCommissioningTLSConfig(client.TLSCertificate())

	if conf.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", conf.MinVersion)
	}
	if !conf.InsecureSkipVerify {
		t.Error("commissioning config must skip certificate verification")
	}
	if len(conf.NextProtos) != 1 || conf.NextProtos[0] != CommissioningALPNProtocol {
		t.Errorf("NextProtos = %v, want [%s]", conf.NextProtos, CommissioningALPNProtocol)
	}
	if len(conf.Certificates) != 1 {
		t.Errorf("Certificates count = %d, want 1", len(conf.Certificates))
	}

	// Certificate is optional for the dialer.
	conf = NewCommissioningTLSConfig(tls.Certificate{})
	if len(conf.Certificates) != 0 {
		t.Error("empty certificate should not be installed")
	}
}

func TestVerifyTLS13(t *testing.T) {
	if err := VerifyTLS13(tls.ConnectionState{Version: tls.VersionTLS13}); err != nil {
		t.Errorf("VerifyTLS13 rejected TLS 1.3: %v", err)
	}
	if err := VerifyTLS13(tls.ConnectionState{Version: tls.VersionTLS12}); err == nil {
		t.Error("VerifyTLS13 should reject TLS 1.2")
	}
}

func TestVerifyALPN(t *testing.T) {
	tests := []struct {
		proto string
		ok    bool
	}{
		{ALPNProtocol, true},
		{CommissioningALPNProtocol, true},
		{"", false},
		{"h2", false},
		{"tvcast/", false},
		{"tvcast/2", false},
	}

	for _, tt := range tests {
		err := VerifyALPN(tls.ConnectionState{NegotiatedProtocol: tt.proto})
		if tt.ok && err != nil {
			t.Errorf("VerifyALPN(%q) = %v, want nil", tt.proto, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("VerifyALPN(%q) = nil, want error", tt.proto)
		}
	}
}

func TestVerifyConnection(t *testing.T) {
	ok := tls.ConnectionState{Version: tls.VersionTLS13, NegotiatedProtocol: ALPNProtocol}
	if err := VerifyConnection(ok); err != nil {
		t.Errorf("VerifyConnection() = %v, want nil", err)
	}

	badVersion := tls.ConnectionState{Version: tls.VersionTLS12, NegotiatedProtocol: ALPNProtocol}
	if err := VerifyConnection(badVersion); err == nil {
		t.Error("VerifyConnection should reject TLS 1.2")
	}

	badALPN := tls.ConnectionState{Version: tls.VersionTLS13, NegotiatedProtocol: "h2"}
	if err := VerifyConnection(badALPN); err == nil {
		t.Error("VerifyConnection should reject unknown ALPN")
	}
}

func TestIsCommissioningSession(t *testing.T) {
	if !IsCommissioningSession(tls.ConnectionState{NegotiatedProtocol: CommissioningALPNProtocol}) {
		t.Error("commissioning ALPN should be a commissioning session")
	}
	if IsCommissioningSession(tls.ConnectionState{NegotiatedProtocol: ALPNProtocol}) {
		t.Error("operational ALPN should not be a commissioning session")
	}
}

func TestDefaultPort(t *testing.T) {
	if DefaultPort != 8443 {
		t.Errorf("DefaultPort = %d, want 8443", DefaultPort)
	}
}

func TestPeerFingerprint(t *testing.T) {
	id := newTestIdentity(t, "caster")

	if got := PeerFingerprint(tls.ConnectionState{}); got != "" {
		t.Errorf("PeerFingerprint with no certs = %q, want empty", got)
	}

	withPeer := tls.ConnectionState{PeerCertificates: []*x509.Certificate{id.Certificate}}
	if got := PeerFingerprint(withPeer); got != id.Fingerprint() {
		t.Errorf("PeerFingerprint = %q, want %q", got, id.Fingerprint())
	}
}

// TestFingerprintPinning runs a real handshake and verifies the pin accepts
// the right peer and rejects an impostor.
func TestFingerprintPinning(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	impostor := newTestIdentity(t, "impostor")
	client := newTestIdentity(t, "commissioner")

	dial := func(serverID *cert.Identity, pin string) error {
		serverConf, err := NewServerTLSConfig(&TLSConfig{Certificate: serverID.TLSCertificate()})
		if err != nil {
			t.Fatalf("server config: %v", err)
		}
		listener, err := tls.Listen("tcp", "127.0.0.1:0", serverConf)
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.(*tls.Conn).Handshake()
			conn.Close()
		}()

		clientConf, err := NewClientTLSConfig(&TLSConfig{
			Certificate:         client.TLSCertificate(),
			ExpectedFingerprint: pin,
		})
		if err != nil {
			t.Fatalf("client config: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dialer := &net.Dialer{}
		raw, err := dialer.DialContext(ctx, "tcp", listener.Addr().String())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn := tls.Client(raw, clientConf)
		err = conn.HandshakeContext(ctx)
		conn.Close()
		return err
	}

	if err := dial(caster, caster.Fingerprint()); err != nil {
		t.Errorf("handshake with pinned peer failed: %v", err)
	}

	err := dial(impostor, caster.Fingerprint())
	if err == nil {
		t.Fatal("handshake with wrong certificate should fail")
	}
	if !strings.Contains(err.Error(), "fingerprint mismatch") {
		t.Errorf("error = %v, want fingerprint mismatch", err)
	}
}
