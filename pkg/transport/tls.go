package transport

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// TLS constants for the casting protocol.
const (
	// ALPNProtocol identifies an operational casting session.
	ALPNProtocol = "tvcast/1"

	// CommissioningALPNProtocol identifies a commissioning-window session.
	CommissioningALPNProtocol = "tvcast-comm/1"

	// DefaultPort is the default casting port.
	DefaultPort = 8443
)

// TLSConfig holds configuration for casting TLS connections.
//
// There are no certificate chains in this protocol: endpoints present
// self-signed certificates and trust is either pinned (a previously learned
// certificate fingerprint) or deferred to the passcode proof that runs over
// the freshly established channel.
type TLSConfig struct {
	// Certificate is the self-signed TLS certificate for this endpoint.
	Certificate tls.Certificate

	// ExpectedFingerprint, when set, pins the peer to a known certificate
	// (hex SHA-256 of the DER). Connections from any other certificate
	// are rejected.
	ExpectedFingerprint string

	// VerifyPeerCertificate is an optional callback for custom
	// certificate checks, run after fingerprint pinning.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
}

// PeerFingerprint returns the hex SHA-256 of the peer's certificate DER, or
// "" if the peer presented no certificate.
func PeerFingerprint(state tls.ConnectionState) string {
	if len(state.PeerCertificates) == 0 {
		return ""
	}
	sum := sha256.Sum256(state.PeerCertificates[0].Raw)
	return hex.EncodeToString(sum[:])
}

// verifyFingerprint builds a VerifyPeerCertificate callback that pins the
// peer to the given fingerprint and then chains to next (if any).
func verifyFingerprint(expected string, next func([][]byte, [][]*x509.Certificate) error) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
		if expected != "" {
			if len(rawCerts) == 0 {
				return fmt.Errorf("no peer certificate presented")
			}
			sum := sha256.Sum256(rawCerts[0])
			if got := hex.EncodeToString(sum[:]); got != expected {
				return fmt.Errorf("peer certificate fingerprint mismatch: %s", got)
			}
		}
		if next != nil {
			return next(rawCerts, verifiedChains)
		}
		return nil
	}
}

// NewServerTLSConfig creates a TLS configuration for the caster's listener.
// Both ALPN protocols are offered; the commissioner picks the commissioning
// one when it connects during an open window.
func NewServerTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if len(cfg.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("server certificate is required")
	}

	return &tls.Config{
		// TLS 1.3 only - no fallback
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		Certificates: []tls.Certificate{cfg.Certificate},

		// Client certificates are requested but chains are never walked;
		// the certificate only supplies the peer fingerprint.
		ClientAuth: tls.RequestClientCert,

		NextProtos: []string{CommissioningALPNProtocol, ALPNProtocol},

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		// Session tickets disabled (no resumption)
		SessionTicketsDisabled: true,

		VerifyPeerCertificate: verifyFingerprint(cfg.ExpectedFingerprint, cfg.VerifyPeerCertificate),
	}, nil
}

// NewClientTLSConfig creates a TLS configuration for an endpoint dialing a
// known peer. The peer's certificate is pinned by fingerprint rather than
// verified against a CA.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if len(cfg.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("client certificate is required")
	}
	if cfg.ExpectedFingerprint == "" && cfg.VerifyPeerCertificate == nil {
		return nil, fmt.Errorf("peer fingerprint is required outside commissioning")
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		Certificates: []tls.Certificate{cfg.Certificate},

		NextProtos: []string{ALPNProtocol},

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		SessionTicketsDisabled: true,

		// Built-in chain verification is skipped; the fingerprint pin
		// below is the trust anchor.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyFingerprint(cfg.ExpectedFingerprint, cfg.VerifyPeerCertificate),
	}, nil
}

// NewCommissioningTLSConfig creates a TLS configuration for dialing a caster
// during an open commissioning window. Certificate verification is skipped
// because the caster's certificate is self-signed and not yet known; the
// passcode proof over the channel supplies the security.
func NewCommissioningTLSConfig(certificate tls.Certificate) *tls.Config {
	conf := &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		InsecureSkipVerify: true,

		NextProtos: []string{CommissioningALPNProtocol},

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		SessionTicketsDisabled: true,
	}
	if len(certificate.Certificate) > 0 {
		conf.Certificates = []tls.Certificate{certificate}
	}
	return conf
}

// VerifyTLS13 checks that a TLS connection is using TLS 1.3.
func VerifyTLS13(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS version %x is not TLS 1.3 (0x0304)", state.Version)
	}
	return nil
}

// VerifyALPN checks that one of the casting protocols was negotiated.
func VerifyALPN(state tls.ConnectionState) error {
	switch state.NegotiatedProtocol {
	case ALPNProtocol, CommissioningALPNProtocol:
		return nil
	}
	return fmt.Errorf("ALPN protocol %q is not a casting protocol", state.NegotiatedProtocol)
}

// VerifyConnection performs standard connection verification.
func VerifyConnection(state tls.ConnectionState) error {
	if err := VerifyTLS13(state); err != nil {
		return err
	}
	if err := VerifyALPN(state); err != nil {
		return err
	}
	return nil
}

// IsCommissioningSession reports whether the connection negotiated the
// commissioning ALPN protocol.
func IsCommissioningSession(state tls.ConnectionState) bool {
	return state.NegotiatedProtocol == CommissioningALPNProtocol
}
