package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// RunExport converts the events of path to JSON Lines. With an empty output
// the lines go to stdout; otherwise they go to the named file and a count is
// printed to stderr.
func RunExport(path, output string) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	if output == "" {
		_, err := exportJSONL(reader, os.Stdout)
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	n, err := exportJSONL(reader, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", n, output)
	return nil
}

// exportJSONL writes one JSON object per event and returns how many it wrote.
func exportJSONL(src eventSource, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("event %d: %w", n+1, err)
		}
		if err := enc.Encode(ev); err != nil {
			return n, err
		}
		n++
	}
}
