package entropy

import (
	"bytes"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// countingProvider records how many bytes it was asked for.
type countingProvider struct {
	ready   bool
	calls   int
	written int
}

func (p *countingProvider) Ready() bool { return p.ready }

func (p *countingProvider) FillRandom(buf []byte) {
	p.calls++
	p.written += len(buf)
	for i := range buf {
		buf[i] = 0xFF
	}
}

func TestPropertyZeroLengthNeverWrites(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := &countingProvider{ready: rapid.Bool().Draw(rt, "ready")}
		buf := rapid.SliceOf(rapid.Byte()).Draw(rt, "buf")
		if buf == nil {
			buf = []byte{}
		}
		orig := bytes.Clone(buf)

		if err := Fill(p, buf, 0); err != nil {
			rt.Fatalf("Fill(buf, 0) error = %v", err)
		}
		if p.calls != 0 {
			rt.Fatalf("provider called %d times for zero length", p.calls)
		}
		if !bytes.Equal(buf, orig) {
			rt.Fatalf("buffer modified for zero length")
		}
	})
}

func TestPropertyNilBufferRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := &countingProvider{ready: rapid.Bool().Draw(rt, "ready")}
		length := rapid.IntRange(1, 4096).Draw(rt, "length")

		err := Fill(p, nil, length)
		if !errors.Is(err, ErrInvalidArgument) {
			rt.Fatalf("Fill(nil, %d) error = %v, want ErrInvalidArgument", length, err)
		}
		if p.calls != 0 {
			rt.Fatalf("provider called for nil buffer")
		}
	})
}

func TestPropertyFillIsAllOrNothing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ready := rapid.Bool().Draw(rt, "ready")
		size := rapid.IntRange(1, 512).Draw(rt, "size")
		length := rapid.IntRange(1, size).Draw(rt, "length")
		p := &countingProvider{ready: ready}
		buf := make([]byte, size)

		err := Fill(p, buf, length)
		switch {
		case ready && err != nil:
			rt.Fatalf("Fill() error = %v with ready provider", err)
		case ready:
			if p.written != length {
				rt.Fatalf("wrote %d bytes, want %d", p.written, length)
			}
			if bytes.Count(buf, []byte{0xFF}) != length {
				rt.Fatalf("bytes outside [0:length] were written")
			}
		default:
			if !errors.Is(err, ErrSourceNotReady) {
				rt.Fatalf("Fill() error = %v, want ErrSourceNotReady", err)
			}
			if p.calls != 0 {
				rt.Fatalf("provider filled while not ready")
			}
		}
	})
}
