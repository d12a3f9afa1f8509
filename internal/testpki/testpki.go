// Package testpki provisions throwaway certificate material for tests.
package testpki

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/tlshandoff/handoff-go/pkg/cert"
)

// Provision writes a CA bundle, device certificate (PEM) and device key
// (DER) into a fresh temporary directory and returns their paths.
func Provision(t testing.TB) cert.Paths {
	t.Helper()
	return ProvisionIn(t, filepath.Join(t.TempDir(), "content"))
}

// ProvisionIn is Provision into a caller-chosen directory.
func ProvisionIn(t testing.TB, dir string) cert.Paths {
	t.Helper()
	ca, err := cert.GenerateAuthority(rand.Reader, "Test CA")
	if err != nil {
		t.Fatalf("generate CA: %v", err)
	}
	id, err := ca.IssueIdentity(rand.Reader, "test-device")
	if err != nil {
		t.Fatalf("issue identity: %v", err)
	}
	paths, err := cert.Provision(dir, ca, id)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return paths
}
