package entropy

import "io"

// Reader exposes a Source as an io.Reader for crypto/tls and key generation.
// A read either fills p completely or returns an error with n == 0.
type Reader struct {
	src *Source
}

// NewReader wraps src.
func NewReader(src *Source) *Reader {
	return &Reader{src: src}
}

// Read fills p with entropy.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := r.src.Fill(p, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Compile-time interface satisfaction check.
var _ io.Reader = (*Reader)(nil)
