package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/internal/testpki"
	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/storage"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

func TestMountMissingBasePath(t *testing.T) {
	_, err := storage.Mount(storage.Config{BasePath: filepath.Join(t.TempDir(), "missing"), PartitionLabel: "storage"})
	assert.ErrorIs(t, err, storage.ErrMountFailed)

	_, err = storage.Mount(storage.Config{})
	assert.ErrorIs(t, err, storage.ErrMountFailed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := storage.DefaultConfig()
	assert.Equal(t, "/content", cfg.BasePath)
	assert.Equal(t, "content", cfg.PartitionLabel)
}

func TestMountFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := storage.Mount(storage.Config{BasePath: path})
	assert.ErrorIs(t, err, storage.ErrMountFailed)
}

func TestVolumeListAndInfo(t *testing.T) {
	dir := t.TempDir()
	testpki.ProvisionIn(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "logs"), 0o755))

	v, err := storage.Mount(storage.Config{BasePath: dir, PartitionLabel: "storage"})
	require.NoError(t, err)
	assert.Equal(t, cert.DefaultPaths(dir), v.Paths())

	entries, err := v.List()
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{cert.TrustAnchorsFile, cert.ClientKeyFile, cert.ClientCertFile, "logs"}, names)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		assert.Positive(t, e.Size, e.Name)
	}

	info, err := v.Info()
	require.NoError(t, err)
	assert.Positive(t, info.Total)
	assert.LessOrEqual(t, info.Used, info.Total)

	v.Unmount()
	_, err = v.List()
	assert.ErrorIs(t, err, storage.ErrNotMounted)
	_, err = v.Info()
	assert.ErrorIs(t, err, storage.ErrNotMounted)
}

func TestBringUp(t *testing.T) {
	dir := t.TempDir()
	testpki.ProvisionIn(t, dir)
	rec := trace.NewRecorder()

	var out bytes.Buffer
	v, err := storage.BringUp(storage.Config{BasePath: dir, PartitionLabel: "storage"}, &out, nil, trace.NewEmitter(rec, "run"))
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Contains(t, out.String(), "File system mounted. Size = ")
	assert.Contains(t, out.String(), "File system content in "+dir+":\n")
	assert.Contains(t, out.String(), cert.ClientCertFile)
	assert.Contains(t, out.String(), "----")

	transitions := rec.Transitions(trace.ResourceStorage)
	require.Len(t, transitions, 1)
	assert.Equal(t, trace.StateMounted, transitions[0].NewState)
}

func TestBringUpMountFailure(t *testing.T) {
	var out bytes.Buffer
	v, err := storage.BringUp(storage.Config{BasePath: filepath.Join(t.TempDir(), "nope")}, &out, nil, nil)
	require.ErrorIs(t, err, storage.ErrMountFailed)
	assert.Nil(t, v)
	assert.Empty(t, out.String())
}
