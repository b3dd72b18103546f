package pkgpack

import (
	"log/slog"

	"github.com/meigma/pkgpack/resolve"
	"github.com/meigma/pkgpack/walk"
)

// Option configures a Packer.
type Option func(*Packer)

// WithLogger sets the logger for packing diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Packer) {
		p.logger = logger
	}
}

// WithWalker replaces the directory walker used for the package and its
// bundled dependencies.
func WithWalker(w walk.Walker) Option {
	return func(p *Packer) {
		p.walker = w
	}
}

// WithResolver replaces the dependency resolver.
func WithResolver(r resolve.Resolver) Option {
	return func(p *Packer) {
		p.resolver = r
	}
}

// WithCompressionLevel sets the gzip level, from -2 (Huffman only) to 9
// (best compression). The default is the gzip default level.
func WithCompressionLevel(level int) Option {
	return func(p *Packer) {
		p.level = level
		p.levelSet = true
	}
}

// WithConcurrency limits how many directories or ignore files are read at
// once. Values < 1 use a default derived from GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(p *Packer) {
		p.concurrency = n
	}
}

// WithFilename sets the output path used by WriteFile. A relative path is
// resolved against the package root. The default is
// "<normalized-name>-<version>.tgz" in the package root.
func WithFilename(name string) Option {
	return func(p *Packer) {
		p.filename = name
	}
}

// WithProgress sets a callback that receives progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Packer) {
		p.progress = fn
	}
}
