package pkgpack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/pkgpack/internal/archive"
	"github.com/meigma/pkgpack/internal/bundle"
	"github.com/meigma/pkgpack/internal/filter"
	"github.com/meigma/pkgpack/internal/rules"
	"github.com/meigma/pkgpack/manifest"
	"github.com/meigma/pkgpack/resolve"
	"github.com/meigma/pkgpack/walk"
)

// Packer selects and archives package files. A Packer is safe for
// concurrent use; each call works on its own snapshot of the tree.
type Packer struct {
	logger      *slog.Logger
	walker      walk.Walker
	resolver    resolve.Resolver
	level       int
	levelSet    bool
	concurrency int
	filename    string
	progress    ProgressFunc

	defaults  filter.Defaults
	bundler   *bundle.Bundler
	assembler *archive.Assembler
}

// New creates a Packer with the given options.
func New(opts ...Option) *Packer {
	p := &Packer{}
	for _, opt := range opts {
		opt(p)
	}
	if p.walker == nil {
		p.walker = walk.New(walk.WithConcurrency(p.concurrency), walk.WithLogger(p.logger))
	}
	if p.resolver == nil {
		p.resolver = resolve.NewNodeResolver(resolve.WithLogger(p.logger))
	}

	p.defaults = filter.NewDefaults()
	p.bundler = bundle.New(
		bundle.WithWalker(p.walker),
		bundle.WithResolver(p.resolver),
		bundle.WithConcurrency(p.concurrency),
		bundle.WithLogger(p.logger),
	)
	asmOpts := []archive.Option{archive.WithLogger(p.logger)}
	if p.progress != nil {
		asmOpts = append(asmOpts, archive.WithEntryFunc(func(e archive.Entry, done, total int, written int64) {
			p.reportProgress(ProgressEvent{
				Stage:      StageWriting,
				Path:       e.Name,
				BytesDone:  written,
				FilesDone:  done,
				FilesTotal: total,
			})
		}))
	}
	if p.levelSet {
		asmOpts = append(asmOpts, archive.WithCompressionLevel(p.level))
	}
	p.assembler = archive.NewAssembler(asmOpts...)
	return p
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Packer) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Selection is the outcome of evaluating a package tree.
type Selection struct {
	// Root is the symlink-resolved package root.
	Root string
	// Manifest is the package manifest.
	Manifest *manifest.Manifest

	// Keep lists the root-relative paths that enter the archive, bundled
	// dependencies included, in depth-first order.
	Keep []string
	// Ignored lists the walked paths left out of the archive.
	Ignored []string
	// Bundled lists the root-relative paths contributed by dependencies.
	// Hoisted dependencies start with "../".
	Bundled []string

	// IgnoreFiles lists the ignore files whose rules were applied.
	IgnoreFiles []string
	// DeadIgnoreFiles lists ignore files that were skipped because their
	// directory is excluded or a sibling supersedes them.
	DeadIgnoreFiles []string
	// MalformedPatterns lists patterns that failed to compile and were skipped.
	MalformedPatterns []string

	entries []archive.Entry
}

// Entries returns the archive entry names in write order.
func (s *Selection) Entries() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Name
	}
	return out
}

// Artifact describes a written archive.
type Artifact struct {
	// Path is the archive location; empty when written to a caller stream.
	Path string
	// Size is the compressed length in bytes.
	Size int64
	// Digest is the canonical (sha256) digest of the compressed bytes.
	Digest digest.Digest
	// Integrity is the "sha512-<base64>" integrity string of the compressed bytes.
	Integrity string
	// Selection is the selection that was archived.
	Selection *Selection
}

// TarballName returns the default archive name for the package in dir.
func TarballName(dir string) (string, error) {
	_, m, err := loadPackage(dir)
	if err != nil {
		return "", err
	}
	return m.TarballName(), nil
}

// Select evaluates the package in dir without writing anything.
func (p *Packer) Select(ctx context.Context, dir string) (*Selection, error) {
	root, m, err := loadPackage(dir)
	if err != nil {
		return nil, err
	}
	return p.selectFrom(ctx, root, m, nil)
}

// Pack writes the archive of the package in dir to w.
func (p *Packer) Pack(ctx context.Context, dir string, w io.Writer) (*Artifact, error) {
	sel, err := p.Select(ctx, dir)
	if err != nil {
		return nil, err
	}
	return p.write(ctx, sel, w)
}

// Stream returns the archive of the package in dir as a reader. The archive
// is produced while the reader is consumed; any packing error is returned
// from Read. Closing the reader early stops packing.
func (p *Packer) Stream(ctx context.Context, dir string) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := p.Pack(ctx, dir, pw)
		pw.CloseWithError(err)
	}()
	return pr
}

// WriteFile writes the archive of the package in dir to the configured
// filename, replacing any existing file atomically. When the output lies
// inside the package tree it is never selected itself.
func (p *Packer) WriteFile(ctx context.Context, dir string) (*Artifact, error) {
	root, m, err := loadPackage(dir)
	if err != nil {
		return nil, err
	}

	target := p.filename
	if target == "" {
		target = m.TarballName()
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}

	sel, err := p.selectFrom(ctx, root, m, outputRule(root, target))
	if err != nil {
		return nil, err
	}

	var art *Artifact
	err = archive.WriteFileAtomic(ctx, target, func(w io.Writer) error {
		var werr error
		art, werr = p.write(ctx, sel, w)
		return werr
	})
	if err != nil {
		return nil, err
	}
	art.Path = target

	p.log().Info("wrote tarball",
		"path", target,
		"size", art.Size,
		"entries", len(sel.entries),
		"integrity", art.Integrity,
	)
	return art, nil
}

// Run packs the package in dir to its default tarball with a Packer built
// from opts.
func Run(ctx context.Context, dir string, opts ...Option) (*Artifact, error) {
	return New(opts...).WriteFile(ctx, dir)
}

func (p *Packer) write(ctx context.Context, sel *Selection, w io.Writer) (*Artifact, error) {
	sum, err := p.assembler.Write(ctx, w, sel.entries)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Size:      sum.Size,
		Digest:    sum.Digest,
		Integrity: sum.Integrity,
		Selection: sel,
	}, nil
}

// loadPackage resolves the package root and reads its manifest. A manifest
// without a name or version fails here, before anything is walked.
func loadPackage(dir string) (string, *manifest.Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolve package root: %w", err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, fmt.Errorf("resolve package root: %w", err)
	}

	m, err := manifest.Load(filepath.Join(root, manifest.FileName))
	if err != nil {
		return "", nil, err
	}
	if err := m.Validate(); err != nil {
		return "", nil, fmt.Errorf("%s: %w", filepath.Join(root, manifest.FileName), err)
	}
	return root, m, nil
}

// selectFrom runs the selection stages in order: walk, rule assembly,
// ignore file discovery, classification, bundling and entry building.
// extra rules are appended to the base rules before ignore files apply.
func (p *Packer) selectFrom(ctx context.Context, root string, m *manifest.Manifest, extra rules.Set) (*Selection, error) {
	log := p.log().With("package", m.Name, "version", m.Version)
	log.Debug("selecting files", "root", root)

	files, err := p.walker.Walk(ctx, root, []string{filter.InstallFolder})
	if err != nil {
		return nil, fmt.Errorf("walk package: %w", err)
	}
	log.Debug("walked package", "entries", len(files))
	p.reportProgress(ProgressEvent{Stage: StageWalking, FilesDone: len(files), FilesTotal: len(files)})

	base := rules.Concat(filter.BaseSet(p.defaults, m), extra)
	live, dead := filter.LiveIgnoreFiles(files, base)
	for _, f := range dead {
		log.Debug("skipping ignore file", "path", f.Relative)
	}

	discovered, err := filter.LoadIgnoreRules(ctx, live, p.concurrency)
	if err != nil {
		return nil, err
	}
	set := rules.Concat(base, discovered)

	sel := &Selection{
		Root:            root,
		Manifest:        m,
		IgnoreFiles:     relatives(live),
		DeadIgnoreFiles: relatives(dead),
	}
	for _, r := range set.Malformed() {
		log.Warn("skipping malformed pattern", "pattern", r.Pattern, "base", r.Base, "error", r.Err)
		sel.MalformedPatterns = append(sel.MalformedPatterns, r.Pattern)
	}

	parts := filter.Classify(files, set)
	p.reportProgress(ProgressEvent{Stage: StageClassifying, FilesDone: len(files), FilesTotal: len(files)})

	bundled, err := p.bundler.Collect(ctx, root, m.DependencyNames(), m.BundleDependenciesOf)
	if err != nil {
		return nil, err
	}
	bundled.Apply(parts)
	sel.Bundled = bundled.Paths()
	p.reportProgress(ProgressEvent{Stage: StageBundling, FilesDone: len(sel.Bundled), FilesTotal: len(sel.Bundled)})

	sel.Keep = parts.KeepList()
	sel.Ignored = parts.IgnoredList()

	sel.entries, err = p.assembler.Build(root, sel.Keep, &archive.Rewriter{Prefixes: bundled.Prefixes})
	if err != nil {
		return nil, err
	}
	log.Debug("selected files",
		"keep", len(sel.Keep),
		"ignored", len(sel.Ignored),
		"bundled", len(sel.Bundled),
		"ignore_files", len(live),
	)
	return sel, nil
}

// outputRule excludes target from the selection when it lies inside root.
func outputRule(root, target string) rules.Set {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil
	}
	return rules.Compile([]string{"/" + escapeGlob(rel)},
		rules.WithOrigin(rules.OriginExcluded),
		rules.WithCaseSensitive(true),
	)
}

var globMeta = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
)

func escapeGlob(s string) string {
	return globMeta.Replace(s)
}

func relatives(recs []walk.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Relative
	}
	return out
}
