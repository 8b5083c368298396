package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFilesystemFetch_ReadsBytes(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "item.tif", []byte("raw image bytes"))
	p := NewFilesystemProvider(dir)

	data, err := p.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw image bytes"), data)
}

func TestFilesystemFetch_BackslashSeparators(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "item.tif", []byte("x"))
	p := NewFilesystemProvider(dir)

	// Resolved paths may arrive with backslash separators.
	windowsStyle := strings.ReplaceAll(filepath.Join(dir, "item.tif"), "/", `\`)
	data, err := p.Fetch(context.Background(), windowsStyle)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestFilesystemFetch_MissingFile(t *testing.T) {
	p := NewFilesystemProvider(t.TempDir())

	_, err := p.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.tif"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemProbe(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, NewFilesystemProvider(dir).Probe(context.Background()))
	assert.Error(t, NewFilesystemProvider(filepath.Join(dir, "gone")).Probe(context.Background()))
	// An unset probe path is a no-op, not a failure.
	assert.NoError(t, NewFilesystemProvider("").Probe(context.Background()))
}

func TestFilesystemName(t *testing.T) {
	assert.Equal(t, "filesystem", NewFilesystemProvider("").Name())
}
