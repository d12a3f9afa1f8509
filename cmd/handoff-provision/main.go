// Command handoff-provision writes the certificate material handoff-demo
// loads: a CA bundle (CA-PubKey.crt, PEM), a device certificate
// (Device.crt, PEM) signed by that CA, and the device key (D-Priv.der, DER).
//
// Key generation draws from the same gated entropy source the demo uses.
//
// Usage:
//
//	handoff-provision [flags]
//
// Flags:
//
//	-dir string        Output directory, the demo's base path (default "/content")
//	-ca-cn string      CA common name (default "Handoff Test CA")
//	-device-cn string  Device common name (default "handoff-device")
//	-force             Overwrite existing material
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/entropy"
	"github.com/tlshandoff/handoff-go/pkg/storage"
)

var (
	dir      = flag.String("dir", storage.DefaultBasePath, "Output directory")
	caCN     = flag.String("ca-cn", "Handoff Test CA", "CA common name")
	deviceCN = flag.String("device-cn", "handoff-device", "Device common name")
	force    = flag.Bool("force", false, "Overwrite existing material")
)

func main() {
	flag.Parse()

	random := entropy.NewReader(entropy.NewSource(entropy.NewSystemProvider(true)))
	paths, err := provision(random, *dir, *caCN, *deviceCN, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Provisioned certificate material:")
	fmt.Printf("  Trust anchors: %s\n", paths.TrustAnchors)
	fmt.Printf("  Certificate:   %s\n", paths.ClientCert)
	fmt.Printf("  Private key:   %s\n", paths.ClientKey)
}

func provision(random io.Reader, dir, caCN, deviceCN string, force bool) (cert.Paths, error) {
	if !force {
		for _, p := range []string{
			cert.DefaultPaths(dir).TrustAnchors,
			cert.DefaultPaths(dir).ClientCert,
			cert.DefaultPaths(dir).ClientKey,
		} {
			if _, err := os.Stat(p); err == nil {
				return cert.Paths{}, fmt.Errorf("%s exists (use -force to overwrite)", p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return cert.Paths{}, err
			}
		}
	}

	ca, err := cert.GenerateAuthority(random, caCN)
	if err != nil {
		return cert.Paths{}, fmt.Errorf("generate CA: %w", err)
	}
	id, err := ca.IssueIdentity(random, deviceCN)
	if err != nil {
		return cert.Paths{}, fmt.Errorf("issue device certificate: %w", err)
	}
	return cert.Provision(dir, ca, id)
}
