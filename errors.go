package pkgpack

import (
	"github.com/meigma/pkgpack/internal/archive"
	"github.com/meigma/pkgpack/internal/bundle"
	"github.com/meigma/pkgpack/internal/filter"
	"github.com/meigma/pkgpack/internal/rules"
	"github.com/meigma/pkgpack/manifest"
)

// Errors re-exported from manifest.
var (
	// ErrMissingMetadata is returned when the manifest lacks a name or version.
	ErrMissingMetadata = manifest.ErrMissingMetadata

	// ErrMissingName is returned when the manifest has no name.
	ErrMissingName = manifest.ErrMissingName

	// ErrMissingVersion is returned when the manifest has no version.
	ErrMissingVersion = manifest.ErrMissingVersion
)

// Errors re-exported from the selection and assembly stages.
var (
	// ErrUnreadableIgnoreFile is returned when a live ignore file cannot be read.
	ErrUnreadableIgnoreFile = filter.ErrUnreadableIgnoreFile

	// ErrDependencyNotFound is returned when a bundled dependency cannot be resolved.
	ErrDependencyNotFound = bundle.ErrDependencyNotFound

	// ErrWrite is returned when the archive cannot be written.
	ErrWrite = archive.ErrWrite

	// ErrSizeChanged is returned when a file changes size while it is packed.
	ErrSizeChanged = archive.ErrSizeChanged

	// ErrSymlink is returned when a packed file is replaced by a symbolic link.
	ErrSymlink = archive.ErrSymlink

	// ErrMalformedPattern wraps the error of every pattern that could not be
	// compiled. Malformed patterns never match and never fail a pack.
	ErrMalformedPattern = rules.ErrMalformedPattern
)
