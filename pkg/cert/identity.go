// Package cert provides the caster's TLS identity.
//
// The casting protocol does not use certificate chains: the caster presents
// a self-signed ECDSA P-256 certificate and channel trust is established by
// the passcode proof during commissioning. The identity only has to be
// stable across restarts so commissioners see the same peer.
package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

// IdentityValidity is the validity period for self-signed identity
// certificates. Long enough to outlive the device; commissioners do not
// check chains, only stability.
const IdentityValidity = 20 * 365 * 24 * time.Hour

// Identity file names within the identity directory.
const (
	certFileName = "identity.crt"
	keyFileName  = "identity.key"
)

// ErrNoIdentity indicates no stored identity was found.
var ErrNoIdentity = errors.New("no stored identity")

// Identity is a self-signed TLS identity (certificate plus private key).
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// GenerateIdentity creates a fresh self-signed identity with the given
// common name.
func GenerateIdentity(commonName string) (*Identity, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"TVCast"},
		},
		NotBefore:             now,
		NotAfter:              now.Add(IdentityValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, err
	}

	return &Identity{Certificate: parsed, PrivateKey: privateKey}, nil
}

// TLSCertificate converts the identity to a tls.Certificate.
func (id *Identity) TLSCertificate() tls.Certificate {
	if id == nil || id.Certificate == nil || id.PrivateKey == nil {
		return tls.Certificate{}
	}
	return tls.Certificate{
		Certificate: [][]byte{id.Certificate.Raw},
		PrivateKey:  id.PrivateKey,
		Leaf:        id.Certificate,
	}
}

// Fingerprint returns the hex SHA-256 of the certificate DER. Stable across
// restarts, so it doubles as the caster's peer identifier.
func (id *Identity) Fingerprint() string {
	if id == nil || id.Certificate == nil {
		return ""
	}
	sum := sha256.Sum256(id.Certificate.Raw)
	return hex.EncodeToString(sum[:])
}

// SaveIdentity writes the identity to dir as PEM files. The private key
// file is created with restricted permissions.
func SaveIdentity(dir string, id *Identity) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := WriteCertFile(filepath.Join(dir, certFileName), id.Certificate); err != nil {
		return err
	}
	return WriteKeyFile(filepath.Join(dir, keyFileName), id.PrivateKey)
}

// LoadIdentity reads a previously saved identity from dir. Returns
// ErrNoIdentity if either file is missing.
func LoadIdentity(dir string) (*Identity, error) {
	certificate, err := ReadCertFile(filepath.Join(dir, certFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}
	key, err := ReadKeyFile(filepath.Join(dir, keyFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}
	return &Identity{Certificate: certificate, PrivateKey: key}, nil
}

// LoadOrGenerateIdentity loads the identity from dir, generating and saving
// a fresh one if none exists.
func LoadOrGenerateIdentity(dir, commonName string) (*Identity, error) {
	id, err := LoadIdentity(dir)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoIdentity) {
		return nil, err
	}
	id, err = GenerateIdentity(commonName)
	if err != nil {
		return nil, err
	}
	if err := SaveIdentity(dir, id); err != nil {
		return nil, err
	}
	return id, nil
}
