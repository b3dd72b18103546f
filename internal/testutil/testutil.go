// Package testutil provides fixture helpers shared by package tests.
package testutil

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// CreateFiles writes a fixture tree below dir. Keys are slash-separated
// relative paths; a key ending in "/" creates an empty directory.
func CreateFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(fullPath, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

// WriteManifest encodes fields as dir/package.json.
func WriteManifest(t testing.TB, dir string, fields map[string]any) {
	t.Helper()
	data, err := json.MarshalIndent(fields, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), data, 0o644))
}

// TarEntry is one decoded tarball member.
type TarEntry struct {
	Header  *tar.Header
	Content string
}

// ReadTarball decodes a gzip-compressed tar stream keyed by entry name.
func ReadTarball(t testing.TB, r io.Reader) map[string]TarEntry {
	t.Helper()
	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string]TarEntry)
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = TarEntry{Header: hdr, Content: string(body)}
	}
	return out
}

// ReadTarballFile opens path and decodes it with ReadTarball.
func ReadTarballFile(t testing.TB, path string) map[string]TarEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	return ReadTarball(t, f)
}
