package bundle

import "errors"

// ErrDependencyNotFound is returned when a bundled dependency cannot be
// located or its source cannot be read.
var ErrDependencyNotFound = errors.New("dependency not found")
