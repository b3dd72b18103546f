// Package archive assembles package tarballs.
//
// An [Assembler] turns the final keep set into sorted [Entry] values rooted
// at [Root] and streams them as a gzip-compressed tar. Headers never carry
// ownership: uid, gid, uname and gname are always zero.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/gzip"
)

// DefaultCompressionLevel is the gzip level used when none is configured.
const DefaultCompressionLevel = gzip.DefaultCompression

const copyBufferSize = 32 * 1024

// EntryFunc is called after each entry is written with the number of
// entries done, the total, and the compressed bytes written so far.
type EntryFunc func(e Entry, done, total int, written int64)

// Assembler builds and writes archives.
type Assembler struct {
	level   int
	onEntry EntryFunc
	logger  *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithCompressionLevel sets the gzip level, from gzip.HuffmanOnly to
// gzip.BestCompression.
func WithCompressionLevel(level int) Option {
	return func(a *Assembler) {
		a.level = level
	}
}

// WithEntryFunc sets a callback invoked after every written entry.
func WithEntryFunc(fn EntryFunc) Option {
	return func(a *Assembler) {
		a.onEntry = fn
	}
}

// WithLogger sets the logger for assembly diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Assembler) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Write streams entries to w as a gzip-compressed tar and returns the size
// and digests of the compressed bytes.
//
// Each layer writes straight through to the next, so a slow w slows the
// whole chain. Any failure is wrapped with [ErrWrite].
func (a *Assembler) Write(ctx context.Context, w io.Writer, entries []Entry) (Sum, error) {
	sum := newSummer()
	zw, err := gzip.NewWriterLevel(io.MultiWriter(w, sum), a.level)
	if err != nil {
		return Sum{}, fmt.Errorf("%w: create gzip writer: %w", ErrWrite, err)
	}
	tw := tar.NewWriter(zw)

	buf := make([]byte, copyBufferSize)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return Sum{}, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if err := writeEntry(ctx, tw, e, buf); err != nil {
			return Sum{}, fmt.Errorf("%w: %s: %w", ErrWrite, e.Name, err)
		}
		if a.onEntry != nil {
			a.onEntry(e, i+1, len(entries), sum.n)
		}
	}

	if err := tw.Close(); err != nil {
		return Sum{}, fmt.Errorf("%w: close tar: %w", ErrWrite, err)
	}
	if err := zw.Close(); err != nil {
		return Sum{}, fmt.Errorf("%w: close gzip: %w", ErrWrite, err)
	}

	s := sum.Sum()
	a.log().Debug("wrote archive", "entries", len(entries), "bytes", s.Size, "digest", s.Digest.String())
	return s, nil
}

// header returns the tar header for e without ownership fields.
func header(e Entry) *tar.Header {
	hdr := &tar.Header{
		Name:    e.Name,
		Mode:    int64(e.Mode.Perm()),
		ModTime: e.ModTime,
	}
	switch {
	case e.Mode.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
	case e.Linkname != "":
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.Linkname
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
	}
	return hdr
}

func writeEntry(ctx context.Context, tw *tar.Writer, e Entry, buf []byte) error {
	hdr := header(e)
	if hdr.Typeflag != tar.TypeReg {
		return tw.WriteHeader(hdr)
	}

	f, err := openNoFollow(e.Source)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", e.Source)
	}
	if info.Size() != e.Size {
		return fmt.Errorf("%w: expected %d, got %d", ErrSizeChanged, e.Size, info.Size())
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	cr := &countingReader{R: io.LimitReader(f, e.Size)}
	if _, err := copyWithContext(ctx, tw, cr, buf); err != nil {
		return err
	}
	if cr.N != e.Size {
		return fmt.Errorf("%w: expected %d, got %d", ErrSizeChanged, e.Size, cr.N)
	}
	return nil
}
