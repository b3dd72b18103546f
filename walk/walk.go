// Package walk lists package source trees.
//
// A [DirWalker] reads a tree level by level. All directories of one level are
// read concurrently, each into its own slot, and the slots are merged into a
// single owned slice once the level completes. Basenames passed as exclusions
// are never visited, so their contents never appear in the listing.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileRecord describes one walked entry.
type FileRecord struct {
	// Relative is the slash-separated path relative to the walk root.
	Relative string
	// Absolute is the location of the entry on disk.
	Absolute string
	// Basename is the last element of Relative.
	Basename string
	// ModTime is the entry modification time.
	ModTime time.Time
	// Mode holds the lstat mode bits; symbolic links are not followed.
	Mode fs.FileMode
}

// IsDir reports whether the record is a directory.
func (r FileRecord) IsDir() bool {
	return r.Mode.IsDir()
}

// Depth returns the number of separators in the relative path.
func (r FileRecord) Depth() int {
	return strings.Count(r.Relative, "/")
}

// Walker lists every entry below root, skipping any entry whose basename is
// in exclude together with everything beneath it.
type Walker interface {
	Walk(ctx context.Context, root string, exclude []string) ([]FileRecord, error)
}

// DirWalker walks the local filesystem.
type DirWalker struct {
	concurrency int
	logger      *slog.Logger
}

// Option configures a DirWalker.
type Option func(*DirWalker)

// WithConcurrency limits how many directories are read at once.
// Values < 1 use a default derived from GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(w *DirWalker) {
		w.concurrency = n
	}
}

// WithLogger sets the logger for walk diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *DirWalker) {
		w.logger = logger
	}
}

// New creates a DirWalker.
func New(opts ...Option) *DirWalker {
	w := &DirWalker{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// log returns the logger, falling back to a discard logger if nil.
func (w *DirWalker) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

func (w *DirWalker) limit() int {
	if w.concurrency > 0 {
		return w.concurrency
	}
	return runtime.GOMAXPROCS(0) * 4
}

// Walk implements Walker. The result is sorted depth-first.
func (w *DirWalker) Walk(ctx context.Context, root string, exclude []string) ([]FileRecord, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	var out []FileRecord
	pending := []string{"."}
	for level := 0; len(pending) > 0; level++ {
		slots := make([][]FileRecord, len(pending))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.limit())
		for i, rel := range pending {
			g.Go(func() error {
				recs, err := readLevel(gctx, root, rel, skip)
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

		next := make([]string, 0, len(pending))
		for _, recs := range slots {
			out = append(out, recs...)
			for _, r := range recs {
				if r.IsDir() {
					next = append(next, r.Relative)
				}
			}
		}
		w.log().Debug("walked level", "root", root, "level", level, "dirs", len(pending), "entries", len(out))
		pending = next
	}

	SortDepthFirst(out)
	return out, nil
}

// readLevel lists one directory and lstats each surviving entry.
func readLevel(ctx context.Context, root, rel string, skip map[string]struct{}) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	recs := make([]FileRecord, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if _, ok := skip[name]; ok {
			continue
		}

		abs := filepath.Join(dir, name)
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("lstat %s: %w", abs, err)
		}

		recs = append(recs, FileRecord{
			Relative: path.Join(rel, name),
			Absolute: abs,
			Basename: name,
			ModTime:  info.ModTime(),
			Mode:     info.Mode(),
		})
	}
	return recs, nil
}

// SortDepthFirst orders records so every directory precedes its contents and
// siblings appear in byte order.
func SortDepthFirst(recs []FileRecord) {
	slices.SortFunc(recs, func(a, b FileRecord) int {
		return ComparePaths(a.Relative, b.Relative)
	})
}

// ComparePaths compares slash-separated paths element by element, so "a/b"
// sorts before "a-b" and a parent always sorts before its children.
func ComparePaths(a, b string) int {
	for {
		ai := strings.IndexByte(a, '/')
		bi := strings.IndexByte(b, '/')

		ah, bh := a, b
		if ai >= 0 {
			ah = a[:ai]
		}
		if bi >= 0 {
			bh = b[:bi]
		}
		if c := strings.Compare(ah, bh); c != 0 {
			return c
		}

		switch {
		case ai < 0 && bi < 0:
			return 0
		case ai < 0:
			return -1
		case bi < 0:
			return 1
		}
		a, b = a[ai+1:], b[bi+1:]
	}
}
