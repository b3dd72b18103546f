package archive

import "errors"

var (
	// ErrWrite is returned when the archive cannot be written.
	ErrWrite = errors.New("write archive")

	// ErrSizeChanged is returned when a source file changes size while it
	// is being copied into the archive.
	ErrSizeChanged = errors.New("file size changed during packing")

	// ErrSymlink is returned when a source recorded as a regular file is a
	// symbolic link by the time it is opened.
	ErrSymlink = errors.New("file replaced by symbolic link")
)
