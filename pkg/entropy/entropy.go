package entropy

import (
	"errors"
	"fmt"
)

// Fill errors.
var (
	ErrInvalidArgument = errors.New("entropy: invalid argument")
	ErrSourceNotReady  = errors.New("entropy: source not ready")
)

// RNG result codes as seen by the TLS library's random subsystem.
const (
	// CodeSuccess indicates the buffer was filled.
	CodeSuccess = 0

	// CodeBadFuncArg indicates a nil buffer or an out-of-range length.
	CodeBadFuncArg = -173

	// CodeRNGFailure indicates the hardware pool was not ready.
	CodeRNGFailure = -199
)

// Provider is a hardware-backed entropy pool.
type Provider interface {
	// Ready reports whether the pool currently yields true random bytes.
	Ready() bool

	// FillRandom fills buf completely. It is only called when Ready
	// returned true.
	FillRandom(buf []byte)
}

// Source adapts a Provider to the RNG callback contract.
// A Source holds no state of its own and is safe for concurrent use as long
// as the provider is.
type Source struct {
	provider Provider
	observe  func(err error)
}

// Option configures a Source.
type Option func(*Source)

// WithObserver registers a function that is called with the result of every
// non-trivial Fill. It is used to feed metrics and must not block.
func WithObserver(fn func(err error)) Option {
	return func(s *Source) {
		s.observe = fn
	}
}

// NewSource creates a Source backed by the given provider.
func NewSource(p Provider, opts ...Option) *Source {
	s := &Source{provider: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fill writes exactly length bytes of hardware entropy into buf.
func (s *Source) Fill(buf []byte, length int) error {
	var p Provider
	if s != nil {
		p = s.provider
	}
	err := Fill(p, buf, length)
	if s != nil && s.observe != nil && buf != nil && length != 0 {
		s.observe(err)
	}
	return err
}

// Ready reports whether the underlying provider is ready.
func (s *Source) Ready() bool {
	return s != nil && s.provider != nil && s.provider.Ready()
}

// Fill is the stateless form of Source.Fill.
//
// The nil check comes first, so a nil buffer is rejected even for a zero
// length. A missing provider is treated like one that is not ready.
func Fill(p Provider, buf []byte, length int) error {
	if buf == nil {
		return ErrInvalidArgument
	}
	if length == 0 {
		return nil
	}
	if length < 0 || length > len(buf) {
		return fmt.Errorf("%w: length %d for buffer of %d bytes", ErrInvalidArgument, length, len(buf))
	}
	if p == nil || !p.Ready() {
		return ErrSourceNotReady
	}
	p.FillRandom(buf[:length])
	return nil
}

// Code maps a Fill result to the numeric code reported to the TLS library.
// Unknown errors are reported as RNG failures so the dependent operation
// aborts.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrInvalidArgument):
		return CodeBadFuncArg
	default:
		return CodeRNGFailure
	}
}
