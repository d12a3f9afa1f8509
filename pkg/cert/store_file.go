package cert

import (
	"fmt"
	"os"
)

// Provision writes a CA bundle, device certificate and device key into dir
// using the conventional file names. Existing files are overwritten.
func Provision(dir string, ca *Authority, id *Identity) (Paths, error) {
	if ca == nil || ca.Certificate == nil {
		return Paths{}, fmt.Errorf("provision: CA certificate is required")
	}
	if id == nil || id.Certificate == nil || id.PrivateKey == nil {
		return Paths{}, fmt.Errorf("provision: device identity is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Paths{}, err
	}

	paths := DefaultPaths(dir)
	if err := WriteCertFile(paths.TrustAnchors, ca.Certificate); err != nil {
		return Paths{}, fmt.Errorf("write trust anchors: %w", err)
	}
	if err := WriteCertFile(paths.ClientCert, id.Certificate); err != nil {
		return Paths{}, fmt.Errorf("write client certificate: %w", err)
	}
	if err := WriteKeyFile(paths.ClientKey, id.PrivateKey); err != nil {
		return Paths{}, fmt.Errorf("write client key: %w", err)
	}
	return paths, nil
}

// LoadIdentity reads back the device certificate and key from paths.
func LoadIdentity(paths Paths) (*Identity, error) {
	c, err := ReadCertFile(paths.ClientCert)
	if err != nil {
		return nil, fmt.Errorf("read client certificate: %w", err)
	}
	key, err := ReadKeyFile(paths.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("read client key: %w", err)
	}
	return &Identity{Certificate: c, PrivateKey: key}, nil
}
