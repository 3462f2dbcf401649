package engine

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTarEntries(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	entries := map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(content)
	}
	return entries
}

func TestTarPathSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "redis.conf")
	require.NoError(t, os.WriteFile(src, []byte("maxmemory 64mb"), 0o644))

	archive, err := tarPath(src, "redis.conf")
	require.NoError(t, err)

	entries := readTarEntries(t, archive)
	assert.Equal(t, map[string]string{"redis.conf": "maxmemory 64mb"}, entries)
}

func TestTarPathDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf.d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "redis.conf"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.d", "extra.conf"), []byte("b"), 0o644))

	archive, err := tarPath(dir, "etc")
	require.NoError(t, err)

	entries := readTarEntries(t, archive)
	assert.Equal(t, "a", entries["etc/redis.conf"])
	assert.Equal(t, "b", entries["etc/conf.d/extra.conf"])
	assert.Contains(t, entries, "etc")
	assert.Contains(t, entries, "etc/conf.d")
}

func TestTarPathPreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "entrypoint.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	archive, err := tarPath(src, "entrypoint.sh")
	require.NoError(t, err)

	tr := tar.NewReader(archive)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0o755), hdr.Mode&0o777)
}

func TestTarPathMissingSource(t *testing.T) {
	_, err := tarPath(filepath.Join(t.TempDir(), "missing"), "missing")
	require.Error(t, err)
}
