package walk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pkgpack/internal/testutil"
)

func relatives(recs []FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Relative
	}
	return out
}

func TestDirWalkerWalk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.CreateFiles(t, dir, map[string]string{
		"a.txt":             "a",
		"a-b.txt":           "ab",
		"lib/index.js":      "x",
		"lib/deep/util.js":  "y",
		"empty/":            "",
		".git/HEAD":         "ref",
		"node_modules/x/y":  "z",
		"lib/node_modules/": "",
	})

	recs, err := New().Walk(context.Background(), dir, []string{".git", "node_modules"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a-b.txt",
		"a.txt",
		"empty",
		"lib",
		"lib/deep",
		"lib/deep/util.js",
		"lib/index.js",
	}, relatives(recs))

	for _, r := range recs {
		assert.Equal(t, filepath.Join(dir, filepath.FromSlash(r.Relative)), r.Absolute)
		assert.Equal(t, filepath.Base(r.Absolute), r.Basename)
		assert.False(t, r.ModTime.IsZero())
	}
}

func TestDirWalkerSerialMatchesParallel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{}
	for _, d := range []string{"a", "b", "c", "d"} {
		for _, f := range []string{"1", "2", "3"} {
			files[d+"/"+f+"/file.txt"] = d + f
		}
	}
	testutil.CreateFiles(t, dir, files)

	serial, err := New(WithConcurrency(1)).Walk(context.Background(), dir, nil)
	require.NoError(t, err)
	parallel, err := New(WithConcurrency(16)).Walk(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Len(t, serial, 4+12+12)
	assert.Equal(t, relatives(serial), relatives(parallel))
}

func TestDirWalkerSymlinkNotFollowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.CreateFiles(t, dir, map[string]string{"real/file.txt": "x"})
	require.NoError(t, os.Symlink("real", filepath.Join(dir, "link")))

	recs, err := New().Walk(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"link", "real", "real/file.txt"}, relatives(recs))
	assert.False(t, recs[0].IsDir())
	assert.NotZero(t, recs[0].Mode&os.ModeSymlink)
}

func TestDirWalkerMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := New().Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirWalkerCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Walk(ctx, t.TempDir(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComparePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "a/b", "a/b", 0},
		{"parent first", "a", "a/b", -1},
		{"child after", "a/b", "a", 1},
		{"separator before dash", "a/b", "a-b", -1},
		{"siblings", "lib/a", "lib/b", -1},
		{"deeper sibling", "lib/z", "lib/a/b", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ComparePaths(tt.a, tt.b))
		})
	}
}

func TestFileRecordDepth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, FileRecord{Relative: "a"}.Depth())
	assert.Equal(t, 2, FileRecord{Relative: "a/b/c"}.Depth())
}
