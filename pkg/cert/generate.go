package cert

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"
)

// ErrNoRandom is returned when no randomness source is supplied.
var ErrNoRandom = errors.New("randomness source is required")

// serialLimit bounds certificate serial numbers to 128 bits.
var serialLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// GenerateKey creates an ECDSA P-256 key from the given randomness source.
// Key material must come from hardware entropy; pass an entropy.Reader.
func GenerateKey(random io.Reader) (*ecdsa.PrivateKey, error) {
	if random == nil {
		return nil, ErrNoRandom
	}
	return ecdsa.GenerateKey(elliptic.P256(), random)
}

// ComputeSKI computes a Subject Key Identifier (SHA-1 of the public key bits).
func ComputeSKI(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, err
	}
	sum := sha1.Sum(spki.PublicKey.Bytes)
	return sum[:], nil
}

// GenerateAuthority creates a self-signed CA.
func GenerateAuthority(random io.Reader, commonName string) (*Authority, error) {
	key, err := GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generate CA key: %w", err)
	}
	ski, err := ComputeSKI(key.Public())
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(random, serialLimit)
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(CAValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
		SubjectKeyId:          ski,
	}

	der, err := x509.CreateCertificate(random, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("sign CA certificate: %w", err)
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Authority{Certificate: c, PrivateKey: key}, nil
}

// IssueIdentity creates a device key and a client certificate signed by ca.
func (ca *Authority) IssueIdentity(random io.Reader, commonName string) (*Identity, error) {
	if ca == nil || ca.Certificate == nil || ca.PrivateKey == nil {
		return nil, errors.New("authority is incomplete")
	}
	key, err := GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}
	ski, err := ComputeSKI(key.Public())
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(random, serialLimit)
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:   serial,
		Subject:        pkix.Name{CommonName: commonName},
		NotBefore:      now.Add(-time.Minute),
		NotAfter:       now.Add(DeviceCertValidity),
		KeyUsage:       x509.KeyUsageDigitalSignature,
		ExtKeyUsage:    []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		SubjectKeyId:   ski,
		AuthorityKeyId: ca.Certificate.SubjectKeyId,
	}

	der, err := x509.CreateCertificate(random, tmpl, ca.Certificate, key.Public(), ca.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign device certificate: %w", err)
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Identity{Certificate: c, PrivateKey: key}, nil
}
