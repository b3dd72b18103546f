package filter

import "errors"

// ErrUnreadableIgnoreFile is returned when a live ignore file cannot be read.
var ErrUnreadableIgnoreFile = errors.New("unreadable ignore file")
