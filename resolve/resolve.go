// Package resolve locates the installed source of package dependencies.
//
// The packer only asks a [Resolver] where a dependency lives. Which
// directories count as part of a dependency (the package itself, its
// transitive dependencies, hoisted copies) is decided here.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/pkgpack/manifest"
)

// InstallDir is the directory that holds installed dependencies.
const InstallDir = "node_modules"

// ErrNotInstalled is returned when a dependency has no installed source.
var ErrNotInstalled = errors.New("dependency not installed")

// Resolver returns the base directories holding a dependency's source.
type Resolver interface {
	Resolve(ctx context.Context, name, baseDir string) ([]string, error)
}

// NodeResolver resolves dependencies through node_modules directories,
// searching baseDir and then each of its parents. Resolve returns the
// dependency directory followed by the directories of its transitive
// dependencies, each at most once.
type NodeResolver struct {
	logger *slog.Logger
}

// Option configures a NodeResolver.
type Option func(*NodeResolver)

// WithLogger sets the logger for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *NodeResolver) {
		r.logger = logger
	}
}

// NewNodeResolver creates a NodeResolver.
func NewNodeResolver(opts ...Option) *NodeResolver {
	r := &NodeResolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// log returns the logger, falling back to a discard logger if nil.
func (r *NodeResolver) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Resolve implements Resolver.
func (r *NodeResolver) Resolve(ctx context.Context, name, baseDir string) ([]string, error) {
	dir, err := lookup(name, baseDir)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{dir: {}}
	dirs := []string{dir}
	if err := r.transitive(ctx, dir, seen, &dirs); err != nil {
		return nil, err
	}
	return dirs, nil
}

// transitive appends the dependencies declared by the package in dir.
// Missing transitive dependencies are logged and skipped; only the
// requested dependency itself must exist.
func (r *NodeResolver) transitive(ctx context.Context, dir string, seen map[string]struct{}, dirs *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, dep := range m.DependencyNames() {
		depDir, err := lookup(dep, dir)
		if err != nil {
			r.log().Debug("transitive dependency not installed", "dependency", dep, "from", dir)
			continue
		}
		if _, ok := seen[depDir]; ok {
			continue
		}
		seen[depDir] = struct{}{}
		*dirs = append(*dirs, depDir)
		if err := r.transitive(ctx, depDir, seen, dirs); err != nil {
			return err
		}
	}
	return nil
}

// lookup finds name below the nearest node_modules directory, starting at
// baseDir and moving toward the filesystem root. The result has symbolic
// links resolved.
func lookup(name, baseDir string) (string, error) {
	dir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, InstallDir, filepath.FromSlash(name))
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.EvalSymlinks(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s (from %s)", ErrNotInstalled, name, baseDir)
		}
		dir = parent
	}
}
