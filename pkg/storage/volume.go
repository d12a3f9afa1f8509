// Package storage mounts the content volume that holds certificate
// material and reports its size and contents.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Storage errors.
var (
	ErrMountFailed = errors.New("storage: mount failed")
	ErrNotMounted  = errors.New("storage: not mounted")
)

// Defaults.
const (
	DefaultBasePath       = "/content"
	DefaultPartitionLabel = "content"
)

// Config names the partition and where it is mounted.
type Config struct {
	BasePath       string `yaml:"base_path" toml:"base_path"`
	PartitionLabel string `yaml:"partition_label" toml:"partition_label"`
}

// DefaultConfig returns the standard mount configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:       DefaultBasePath,
		PartitionLabel: DefaultPartitionLabel,
	}
}

// Info is the size of the mounted volume in bytes.
type Info struct {
	Total uint64
	Used  uint64
}

// Entry is one directory entry under the base path.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Volume is a mounted content partition.
type Volume struct {
	cfg     Config
	mounted bool
}

// Mount attaches the partition. The base path must exist and be a
// directory.
func Mount(cfg Config) (*Volume, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("%w: empty base path", ErrMountFailed)
	}
	st, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrMountFailed, cfg.PartitionLabel, cfg.BasePath, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMountFailed, cfg.BasePath)
	}
	return &Volume{cfg: cfg, mounted: true}, nil
}

// Config returns the mount configuration.
func (v *Volume) Config() Config {
	return v.cfg
}

// BasePath returns the mount point.
func (v *Volume) BasePath() string {
	return v.cfg.BasePath
}

// Paths returns the default certificate material locations on the volume.
func (v *Volume) Paths() cert.Paths {
	return cert.DefaultPaths(v.cfg.BasePath)
}

// Info reports the total and used size of the filesystem backing the volume.
func (v *Volume) Info() (Info, error) {
	if v == nil || !v.mounted {
		return Info{}, ErrNotMounted
	}
	usage, err := disk.Usage(v.cfg.BasePath)
	if err != nil {
		return Info{}, fmt.Errorf("storage: usage of %s: %w", v.cfg.BasePath, err)
	}
	return Info{Total: usage.Total, Used: usage.Used}, nil
}

// List returns the entries directly under the base path, sorted by name.
func (v *Volume) List() ([]Entry, error) {
	if v == nil || !v.mounted {
		return nil, ErrNotMounted
	}
	dirents, err := os.ReadDir(v.cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", v.cfg.BasePath, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		e := Entry{Name: d.Name(), IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: stat %s: %w", filepath.Join(v.cfg.BasePath, d.Name()), err)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Unmount detaches the volume. Further Info and List calls fail.
func (v *Volume) Unmount() {
	if v != nil {
		v.mounted = false
	}
}

// BringUp mounts the volume and writes the startup report to w: size line,
// a "File system content in <base>:" header with the listing, and a
// separator. Mount failure is returned; size and
// listing failures are only logged.
func BringUp(cfg Config, w io.Writer, logger *slog.Logger, e *trace.Emitter) (*Volume, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v, err := Mount(cfg)
	if err != nil {
		logger.Error("Failed to mount file system", "partition", cfg.PartitionLabel, "base_path", cfg.BasePath, "error", err)
		e.Error("", err.Error(), nil, "mount")
		return nil, err
	}
	e.Lifecycle("", trace.ResourceStorage, cfg.PartitionLabel, trace.StateAbsent, trace.StateMounted, cfg.BasePath)

	if info, err := v.Info(); err != nil {
		logger.Warn("Failed to get file system info", "error", err)
	} else {
		fmt.Fprintf(w, "File system mounted. Size = %d, used = %d\n", info.Total, info.Used)
	}

	entries, err := v.List()
	if err != nil {
		logger.Warn("Directory not found", "path", cfg.BasePath, "error", err)
		fmt.Fprintln(w, "Directory not found")
	} else {
		fmt.Fprintf(w, "File system content in %s:\n", cfg.BasePath)
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(w, "  %s/\n", e.Name)
			} else {
				fmt.Fprintf(w, "  %-24s %8d\n", e.Name, e.Size)
			}
		}
	}
	fmt.Fprintln(w, "----------------------------------------")
	return v, nil
}
