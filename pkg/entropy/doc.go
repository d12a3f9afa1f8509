// Package entropy adapts a hardware random byte generator to the RNG
// callback contract expected by the TLS library.
//
// The contract is deliberately narrow:
//
//   - a nil buffer fails with ErrInvalidArgument and nothing is written
//   - a zero length succeeds without touching the buffer
//   - otherwise exactly length bytes are written, or the call fails
//
// When the hardware pool is not ready (for example the radio that feeds it
// is still off) Fill fails with ErrSourceNotReady. There is no internal
// retry and no fallback to a pseudo-random generator: a caller that needs
// randomness must make sure the provider is ready first, see WaitReady.
//
// # Usage
//
//	src := entropy.NewSource(entropy.NewSystemProvider(true))
//	buf := make([]byte, 32)
//	if err := src.Fill(buf, len(buf)); err != nil {
//	    return err
//	}
//
// Reader adapts a Source to io.Reader so it can be plugged into
// crypto/tls.Config.Rand or key generation routines.
package entropy
