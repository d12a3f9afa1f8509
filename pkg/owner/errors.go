package owner

import (
	"errors"
	"fmt"

	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

// Owner errors.
var (
	ErrAllocationFailed   = errors.New("owner: allocation failed")
	ErrLoadFailed         = errors.New("owner: load failed")
	ErrNoContext          = errors.New("owner: no context")
	ErrConcurrentMutation = errors.New("owner: concurrent mutation")
)

// Step identifies one of the certificate material load steps.
type Step uint8

const (
	StepTrustAnchors Step = iota
	StepCertificate
	StepPrivateKey
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepTrustAnchors:
		return "trust-anchors"
	case StepCertificate:
		return "certificate"
	case StepPrivateKey:
		return "private-key"
	default:
		return "unknown"
	}
}

// describe returns the noun used in log lines.
func (s Step) describe() string {
	switch s {
	case StepTrustAnchors:
		return "CA certificate"
	case StepCertificate:
		return "client certificate"
	case StepPrivateKey:
		return "client private key"
	default:
		return "material"
	}
}

// LoadError reports a failed load step. errors.Is(err, ErrLoadFailed) holds.
type LoadError struct {
	Step Step
	Path string
	Code tlslib.Code
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %s: %s", e.Step, e.Path, e.Code)
}

// Is reports ErrLoadFailed as the sentinel for every LoadError.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}
