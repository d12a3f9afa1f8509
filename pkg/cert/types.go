package cert

import (
	"crypto"
	"crypto/x509"
	"path/filepath"
	"time"
)

// File names of the certificate material under the content base path.
const (
	// TrustAnchorsFile holds the PEM-encoded CA certificate(s).
	TrustAnchorsFile = "CA-PubKey.crt"

	// ClientCertFile holds the PEM-encoded device certificate.
	ClientCertFile = "Device.crt"

	// ClientKeyFile holds the DER-encoded device private key.
	ClientKeyFile = "D-Priv.der"
)

// Validity periods for provisioned material.
const (
	// CAValidity is the validity period of the provisioning CA.
	CAValidity = 20 * 365 * 24 * time.Hour // 20 years

	// DeviceCertValidity is the validity period of a device certificate.
	DeviceCertValidity = 365 * 24 * time.Hour // 1 year
)

// Paths locates the three files a TLS client context is built from.
type Paths struct {
	// TrustAnchors is the CA bundle used to verify peers.
	TrustAnchors string `yaml:"trust_anchors" toml:"trust_anchors"`

	// ClientCert is the device certificate (PEM).
	ClientCert string `yaml:"client_cert" toml:"client_cert"`

	// ClientKey is the device private key (DER).
	ClientKey string `yaml:"client_key" toml:"client_key"`
}

// DefaultPaths returns the conventional file locations under base.
func DefaultPaths(base string) Paths {
	return Paths{
		TrustAnchors: filepath.Join(base, TrustAnchorsFile),
		ClientCert:   filepath.Join(base, ClientCertFile),
		ClientKey:    filepath.Join(base, ClientKeyFile),
	}
}

// Authority is a CA that can sign device certificates.
type Authority struct {
	// Certificate is the CA certificate.
	Certificate *x509.Certificate

	// PrivateKey signs issued certificates.
	PrivateKey crypto.Signer
}

// Identity is a device certificate and its private key.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
}

// ExpiresAt returns when the identity certificate expires.
func (id *Identity) ExpiresAt() time.Time {
	if id == nil || id.Certificate == nil {
		return time.Time{}
	}
	return id.Certificate.NotAfter
}
