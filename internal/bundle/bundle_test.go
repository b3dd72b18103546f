package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pkgpack/internal/filter"
	"github.com/meigma/pkgpack/internal/testutil"
	"github.com/meigma/pkgpack/resolve"
)

// fixedResolver returns the same directories for every name.
type fixedResolver struct {
	dirs []string
	err  error
}

func (r fixedResolver) Resolve(context.Context, string, string) ([]string, error) {
	return r.dirs, r.err
}

func TestCollectLocal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{
		"node_modules/dep/index.js":                        "module.exports = 1",
		"node_modules/dep/.git/HEAD":                       "ref",
		"node_modules/dep/node_modules/inner/index.js":     "inner",
		"node_modules/dep/node_modules/inner/package.json": `{"name":"inner"}`,
		"node_modules/dep/node_modules/unused/index.js":    "unused",
		"node_modules/other/index.js":                      "other",
	})
	testutil.WriteManifest(t, filepath.Join(root, "node_modules", "dep"), map[string]any{
		"name":         "dep",
		"dependencies": map[string]string{"inner": "^1.0.0"},
	})

	set, err := New().Collect(context.Background(), root, []string{"dep"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"node_modules/dep",
		"node_modules/dep/index.js",
		"node_modules/dep/package.json",
		"node_modules/dep/node_modules/inner",
		"node_modules/dep/node_modules/inner/index.js",
		"node_modules/dep/node_modules/inner/package.json",
	}, set.Paths())
	assert.Empty(t, set.Prefixes)

	for _, f := range set.Files {
		_, err := os.Lstat(f.Absolute)
		assert.NoError(t, err, f.Relative)
	}
}

func TestCollectNothing(t *testing.T) {
	t.Parallel()

	set, err := New().Collect(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, set.Files)
	assert.Empty(t, set.Prefixes)
}

func TestCollectForeignManifest(t *testing.T) {
	t.Parallel()

	ws := t.TempDir()
	testutil.CreateFiles(t, ws, map[string]string{
		"node_modules/x/a.js":     "a",
		"node_modules/x/lib/b.js": "b",
		"packages/app/index.js":   "app",
	})
	testutil.WriteManifest(t, ws, map[string]any{
		"name":         "workspace",
		"dependencies": map[string]string{"x": "1.0.0"},
	})
	root := filepath.Join(ws, "packages", "app")
	testutil.WriteManifest(t, root, map[string]any{"name": "app", "version": "1.0.0"})

	for _, entry := range []string{"../..", "../../", "../../package.json"} {
		set, err := New().Collect(context.Background(), root, nil, []string{entry})
		require.NoError(t, err, entry)

		assert.Equal(t, []string{
			"../../node_modules/x",
			"../../node_modules/x/a.js",
			"../../node_modules/x/lib",
			"../../node_modules/x/lib/b.js",
		}, set.Paths(), entry)
		assert.Equal(t, []string{"../.."}, set.Prefixes, entry)
	}
}

func TestCollectForeignManifestMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := New().Collect(context.Background(), root, nil, []string{"vendor/none"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectNotInstalled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := New().Collect(context.Background(), root, []string{"missing"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyNotFound)
	assert.ErrorIs(t, err, resolve.ErrNotInstalled)
}

func TestCollectResolverFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name     string
		resolver fixedResolver
	}{
		{name: "error", resolver: fixedResolver{err: boom}},
		{name: "no directories", resolver: fixedResolver{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := New(WithResolver(tt.resolver))
			_, err := b.Collect(context.Background(), t.TempDir(), []string{"dep"}, nil)
			assert.ErrorIs(t, err, ErrDependencyNotFound)
		})
	}
}

func TestCollectDeduplicates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{
		"node_modules/shared/index.js": "s",
	})
	dir := filepath.Join(root, "node_modules", "shared")

	b := New(WithResolver(fixedResolver{dirs: []string{dir, dir}}), WithConcurrency(1))
	set, err := b.Collect(context.Background(), root, []string{"a", "b"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"node_modules/shared", "node_modules/shared/index.js"}, set.Paths())
}

func TestCollectCanceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{"node_modules/dep/index.js": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Collect(ctx, root, []string{"dep"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetApply(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.CreateFiles(t, root, map[string]string{
		"node_modules/dep/index.js": "x",
	})

	set, err := New().Collect(context.Background(), root, []string{"dep"}, nil)
	require.NoError(t, err)

	parts := filter.NewPartitions()
	parts.Keep("index.js")
	parts.Ignore("node_modules")
	parts.Ignore("node_modules/dep")
	parts.Ignore("node_modules/dep/index.js")

	set.Apply(parts)

	assert.Equal(t, []string{"index.js", "node_modules", "node_modules/dep", "node_modules/dep/index.js"}, parts.KeepList())
	assert.Empty(t, parts.IgnoredList())
}
