package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OutputMode is the permission of a written archive file.
const OutputMode = 0o644

// WriteFileAtomic calls fn with a temp file in the directory of target and
// renames it over target once fn succeeds. Parent directories are created as
// needed. On any failure the temp file is removed and an existing target is
// left untouched.
func WriteFileAtomic(ctx context.Context, target string, fn func(io.Writer) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create output directory: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".pkgpack-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := ctx.Err(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Chmod(OutputMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
