// Package bundle collects the installed source of dependencies that ship
// inside a package archive.
//
// Bundled files bypass every filter rule. [Bundler.Collect] resolves each
// dependency, walks its directories and expresses the result relative to
// the real package root; [Set.Apply] then forces those paths into the keep
// set of a classification.
package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/pkgpack/internal/filter"
	"github.com/meigma/pkgpack/manifest"
	"github.com/meigma/pkgpack/resolve"
	"github.com/meigma/pkgpack/walk"
)

// ExcludedFolders are never walked inside a bundled dependency.
var ExcludedFolders = []string{".git", "CVS", ".svn", ".hg", "node_modules"}

// Set is the result of a collection.
type Set struct {
	// Files holds every bundled entry. Relative is expressed against the
	// real package root and may start with "../" for hoisted dependencies.
	Files []walk.FileRecord

	// Prefixes holds the slash-separated locations, relative to the package
	// root, of foreign manifests outside the root. Archive names below one
	// of them are rewritten relative to it.
	Prefixes []string
}

// Paths returns the relative paths of every bundled entry.
func (s *Set) Paths() []string {
	out := make([]string, len(s.Files))
	for i, f := range s.Files {
		out[i] = f.Relative
	}
	return out
}

// Apply forces every bundled path, and its ancestors inside the root, into
// the keep set.
func (s *Set) Apply(parts *filter.Partitions) {
	for _, f := range s.Files {
		parts.Force(f.Relative)
	}
}

// Bundler collects dependency sources.
type Bundler struct {
	walker      walk.Walker
	resolver    resolve.Resolver
	concurrency int
	logger      *slog.Logger
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithWalker sets the walker used for dependency directories.
func WithWalker(w walk.Walker) Option {
	return func(b *Bundler) {
		b.walker = w
	}
}

// WithResolver sets the dependency resolver.
func WithResolver(r resolve.Resolver) Option {
	return func(b *Bundler) {
		b.resolver = r
	}
}

// WithConcurrency limits how many dependency directories are walked at once.
// Values < 1 walk every directory concurrently.
func WithConcurrency(n int) Option {
	return func(b *Bundler) {
		b.concurrency = n
	}
}

// WithLogger sets the logger for bundling diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundler) {
		b.logger = logger
	}
}

// New creates a Bundler. Without options it walks with [walk.New] and
// resolves through [resolve.NewNodeResolver].
func New(opts ...Option) *Bundler {
	b := &Bundler{}
	for _, opt := range opts {
		opt(b)
	}
	if b.walker == nil {
		b.walker = walk.New(walk.WithLogger(b.logger))
	}
	if b.resolver == nil {
		b.resolver = resolve.NewNodeResolver(resolve.WithLogger(b.logger))
	}
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Bundler) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

type request struct {
	name    string
	baseDir string
}

// Collect resolves names from root and the dependencies of every foreign
// manifest, then walks each resolved directory.
//
// A foreign entry names a manifest or the directory holding one; relative
// entries are resolved against root. Any dependency that cannot be
// resolved fails the whole collection with [ErrDependencyNotFound].
func (b *Bundler) Collect(ctx context.Context, root string, names, foreign []string) (*Set, error) {
	set := &Set{}
	if len(names) == 0 && len(foreign) == 0 {
		return set, nil
	}

	realRoot, err := realPath(root)
	if err != nil {
		return nil, fmt.Errorf("resolve package root: %w", err)
	}

	reqs := make([]request, 0, len(names))
	for _, name := range names {
		reqs = append(reqs, request{name: name, baseDir: realRoot})
	}
	for _, entry := range foreign {
		deps, prefix, err := b.foreignRequests(realRoot, entry)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, deps...)
		if prefix != "" && !slices.Contains(set.Prefixes, prefix) {
			set.Prefixes = append(set.Prefixes, prefix)
		}
	}

	dirs, err := b.resolveAll(ctx, reqs)
	if err != nil {
		return nil, err
	}

	files, err := b.walkAll(ctx, realRoot, dirs)
	if err != nil {
		return nil, err
	}
	set.Files = files

	// Longest prefix first so nested foreign roots match before their parents.
	slices.SortFunc(set.Prefixes, func(a, c string) int {
		return len(c) - len(a)
	})
	b.log().Debug("collected bundled dependencies",
		"dependencies", len(reqs), "directories", len(dirs), "files", len(files))
	return set, nil
}

// foreignRequests loads a foreign manifest and returns one request per
// dependency it declares, plus its rewrite prefix when it lies outside root.
func (b *Bundler) foreignRequests(realRoot, entry string) ([]request, string, error) {
	p := filepath.FromSlash(entry)
	if filepath.Base(p) != manifest.FileName {
		p = filepath.Join(p, manifest.FileName)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(realRoot, p)
	}

	m, err := manifest.Load(p)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bundle manifest %s: %w", ErrDependencyNotFound, entry, err)
	}

	dir, err := realPath(filepath.Dir(p))
	if err != nil {
		return nil, "", fmt.Errorf("%w: bundle manifest %s: %w", ErrDependencyNotFound, entry, err)
	}

	deps := m.DependencyNames()
	reqs := make([]request, 0, len(deps))
	for _, name := range deps {
		reqs = append(reqs, request{name: name, baseDir: dir})
	}

	var prefix string
	if rel, err := filepath.Rel(realRoot, dir); err == nil {
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			prefix = rel
		}
	}
	b.log().Debug("loaded bundle manifest", "manifest", p, "dependencies", len(deps), "prefix", prefix)
	return reqs, prefix, nil
}

// resolveAll resolves every request in order and deduplicates directories.
func (b *Bundler) resolveAll(ctx context.Context, reqs []request) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resolved, err := b.resolver.Resolve(ctx, req.name, req.baseDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDependencyNotFound, req.name, err)
		}
		if len(resolved) == 0 {
			return nil, fmt.Errorf("%w: %s: no source directory", ErrDependencyNotFound, req.name)
		}
		for _, dir := range resolved {
			real, err := realPath(dir)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrDependencyNotFound, req.name, err)
			}
			if _, ok := seen[real]; ok {
				continue
			}
			seen[real] = struct{}{}
			dirs = append(dirs, real)
		}
		b.log().Debug("resolved dependency", "dependency", req.name, "from", req.baseDir, "directories", len(resolved))
	}
	return dirs, nil
}

// walkAll walks each directory into its own slot and merges the slots in
// directory order, dropping entries already contributed by an earlier one.
func (b *Bundler) walkAll(ctx context.Context, realRoot string, dirs []string) ([]walk.FileRecord, error) {
	slots := make([][]walk.FileRecord, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}
	for i, dir := range dirs {
		g.Go(func() error {
			recs, err := b.walkDir(gctx, realRoot, dir)
			if err != nil {
				return err
			}
			slots[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []walk.FileRecord
	for _, recs := range slots {
		for _, r := range recs {
			if _, ok := seen[r.Relative]; ok {
				continue
			}
			seen[r.Relative] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

// walkDir lists dir itself and everything below it, relative to realRoot.
func (b *Bundler) walkDir(ctx context.Context, realRoot, dir string) ([]walk.FileRecord, error) {
	info, err := os.Lstat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependencyNotFound, err)
	}
	base, err := rootRelative(realRoot, dir)
	if err != nil {
		return nil, err
	}

	recs, err := b.walker.Walk(ctx, dir, ExcludedFolders)
	if err != nil {
		return nil, fmt.Errorf("walk dependency %s: %w", dir, err)
	}

	out := make([]walk.FileRecord, 0, len(recs)+1)
	out = append(out, walk.FileRecord{
		Relative: base,
		Absolute: dir,
		Basename: filepath.Base(dir),
		ModTime:  info.ModTime(),
		Mode:     info.Mode(),
	})
	for _, r := range recs {
		r.Relative = path.Join(base, r.Relative)
		out = append(out, r)
	}
	return out, nil
}

func rootRelative(realRoot, abs string) (string, error) {
	rel, err := filepath.Rel(realRoot, abs)
	if err != nil {
		return "", fmt.Errorf("relate %s to package root: %w", abs, err)
	}
	return filepath.ToSlash(rel), nil
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
