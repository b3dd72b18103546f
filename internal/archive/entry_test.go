package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pkgpack/internal/testutil"
)

func TestRewriterRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prefixes []string
		rel      string
		want     string
	}{
		{name: "inside root", rel: "lib/index.js", want: "lib/index.js"},
		{name: "hoisted dependency", rel: "../../node_modules/x/a.js", want: "node_modules/x/a.js"},
		{name: "hoisted with prefix", prefixes: []string{"../.."}, rel: "../../node_modules/x/a.js", want: "node_modules/x/a.js"},
		{name: "prefix with trailing slash", prefixes: []string{"../../"}, rel: "../../vendor/a.js", want: "vendor/a.js"},
		{name: "first node_modules segment", rel: "../ws/node_modules/x/node_modules/y/b.js", want: "node_modules/x/node_modules/y/b.js"},
		{name: "no prefix no node_modules", rel: "../../lib/a.js", want: "lib/a.js"},
		{name: "longest prefix listed first", prefixes: []string{"../../ws", "../.."}, rel: "../../ws/lib/a.js", want: "lib/a.js"},
		{name: "prefix not matching", prefixes: []string{"../other"}, rel: "../../node_modules/x", want: "node_modules/x"},
		{name: "bare parent", rel: "..", want: "."},
		{name: "cleaned", rel: "lib/../src/./a.js", want: "src/a.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rw := &Rewriter{Prefixes: tt.prefixes}
			got := rw.Rewrite(tt.rel)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, "/"+got+"/", "/../")
		})
	}
}

func TestEntryName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "package", EntryName(".", nil))
	assert.Equal(t, "package/index.js", EntryName("index.js", nil))
	assert.Equal(t, "package/lib/a.js", EntryName("lib/a.js", &Rewriter{}))
	assert.Equal(t, "package/node_modules/x", EntryName("../../node_modules/x", nil))
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestAssemblerBuild(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{
		"package.json":    `{"name":"a","version":"1.0.0"}`,
		"index.js":        "console.log(1)",
		"lib/util.js":     "util",
		"lib/empty/":      "",
		"node_modules/x/": "",
	})
	require.NoError(t, os.Symlink("index.js", filepath.Join(root, "alias.js")))

	keep := []string{".", "alias.js", "index.js", "lib", "lib/empty", "lib/util.js", "package.json"}
	entries, err := NewAssembler().Build(root, keep, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"package",
		"package/alias.js",
		"package/index.js",
		"package/lib",
		"package/lib/empty",
		"package/lib/util.js",
		"package/package.json",
	}, names(entries))

	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.True(t, byName["package"].Mode.IsDir())
	assert.Equal(t, root, byName["package"].Source)
	assert.Equal(t, int64(len("console.log(1)")), byName["package/index.js"].Size)
	assert.Equal(t, "index.js", byName["package/alias.js"].Linkname)
	assert.NotZero(t, byName["package/alias.js"].Mode&fs.ModeSymlink)
	assert.True(t, byName["package/lib/empty"].Mode.IsDir())
}

func TestAssemblerBuildDeduplicatesRewrittenNames(t *testing.T) {
	t.Parallel()

	ws := t.TempDir()
	testutil.CreateFiles(t, ws, map[string]string{
		"node_modules/x/a.js":     "hoisted",
		"pkg/node_modules/x/a.js": "local",
		"pkg/package.json":        "{}",
	})
	root := filepath.Join(ws, "pkg")

	keep := []string{"../node_modules/x/a.js", "node_modules/x/a.js"}
	entries, err := NewAssembler().Build(root, keep, &Rewriter{Prefixes: []string{".."}})
	require.NoError(t, err)

	require.Equal(t, []string{"package", "package/node_modules/x/a.js"}, names(entries))
	assert.Equal(t, filepath.Join(ws, "node_modules", "x", "a.js"), entries[1].Source)
}

func TestAssemblerBuildMissingSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := NewAssembler().Build(root, []string{"gone.js"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAssemblerBuildRootNotDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{"file": "x"})
	_, err := NewAssembler().Build(filepath.Join(root, "file"), nil, nil)
	assert.Error(t, err)
}
