package trace

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileExtension is the conventional suffix for trace files.
const FileExtension = ".htrace"

// FormatVersion is the trace file version this package writes and reads.
const FormatVersion = 1

const formatName = "htrace"

// Header is the first record of every trace file. Events follow it as a
// plain sequence of CBOR items.
type Header struct {
	Format  string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint"`
}

var (
	// ErrNotTrace is returned when a file does not start with a trace header.
	ErrNotTrace = errors.New("trace: not a trace file")

	// ErrUnsupportedVersion is returned for a header from a newer writer.
	ErrUnsupportedVersion = errors.New("trace: unsupported format version")
)

// Events use deterministic integer-keyed maps with nanosecond timestamps.
// Readers reject duplicate keys and oversized items, since a truncated or
// foreign file is read back by the handoff-trace tool.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	encOpts.NilContainers = cbor.NilContainerAsNull

	var err error
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("trace encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  8,
		MaxArrayElements: 1024,
		MaxMapPairs:      64,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("trace decoder mode: %v", err))
	}
}

func newHeader() Header {
	return Header{Format: formatName, Version: FormatVersion, Created: time.Now().UTC()}
}

// check reports whether h opens a file this package can read.
func (h Header) check() error {
	if h.Format != formatName {
		return fmt.Errorf("%w: format %q", ErrNotTrace, h.Format)
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, h.Version, FormatVersion)
	}
	return nil
}

// readHeader decodes and checks the header at the start of a trace stream.
// It returns io.EOF for an empty stream.
func readHeader(dec *cbor.Decoder) (Header, error) {
	var h Header
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, io.EOF
		}
		return Header{}, fmt.Errorf("%w: %v", ErrNotTrace, err)
	}
	return h, h.check()
}

// EncodeEvent encodes a single event the way trace files store it.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single stored event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
