package rules

import "errors"

var (
	// ErrMalformedPattern marks a rule whose pattern could not be compiled.
	ErrMalformedPattern = errors.New("malformed pattern")

	// errRangeTooLarge is returned when a brace range would expand past maxRangeItems.
	errRangeTooLarge = errors.New("brace range too large")

	// errUnclosedGroup is returned for an extglob group without a closing ")".
	errUnclosedGroup = errors.New("unclosed extglob group")

	// errUnsupportedGroup is returned for the "*(", "?(" and "!(" extglob groups.
	errUnsupportedGroup = errors.New("unsupported extglob group")
)
