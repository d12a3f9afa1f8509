package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends CBOR-encoded events to a .htrace file. A new file
// starts with a Header. Several runs may share one file; readers tell them
// apart by RunID.
type FileLogger struct {
	mu      sync.Mutex
	f       *os.File
	enc     *cbor.Encoder
	written int
	werr    error
}

// NewFileLogger opens path for appending, creating the file (0644) and its
// directory as needed. Appending to an existing file requires a readable
// header of a supported version.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	enc := encMode.NewEncoder(f)
	if info.Size() == 0 {
		err = enc.Encode(newHeader())
	} else {
		_, err = readHeader(decMode.NewDecoder(io.NewSectionReader(f, 0, info.Size())))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileLogger{f: f, enc: enc}, nil
}

// Log appends the event. Write failures never reach the caller; the first
// one is kept for Err. Events after Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		if l.werr == nil {
			l.werr = err
		}
		return
	}
	l.written++
}

// Written returns how many events were appended.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Err returns the first write error, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.werr
}

// Close syncs and closes the file. Repeated calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
