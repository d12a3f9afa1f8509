package entropy

import (
	"crypto/rand"
	"sync/atomic"
)

// SystemProvider draws from the operating system CSPRNG, gated by a
// readiness switch standing in for the radio that feeds the hardware pool.
// It is safe for concurrent use.
type SystemProvider struct {
	active atomic.Bool
}

// NewSystemProvider creates a provider. When active is false the provider
// reports not-ready until Activate is called.
func NewSystemProvider(active bool) *SystemProvider {
	p := &SystemProvider{}
	p.active.Store(active)
	return p
}

// Activate marks the pool as ready.
func (p *SystemProvider) Activate() {
	p.active.Store(true)
}

// Deactivate marks the pool as not ready.
func (p *SystemProvider) Deactivate() {
	p.active.Store(false)
}

// Ready reports whether the pool is active.
func (p *SystemProvider) Ready() bool {
	return p.active.Load()
}

// FillRandom fills buf from the OS generator.
func (p *SystemProvider) FillRandom(buf []byte) {
	// crypto/rand.Read never returns an error on supported platforms and
	// crashes the program irrecoverably otherwise.
	_, _ = rand.Read(buf)
}

// Compile-time interface satisfaction check.
var _ Provider = (*SystemProvider)(nil)
