package rules

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Origin tags the source of a rule. The classifier gives Required and
// Excluded rules precedence over ordinary last-match-wins evaluation.
type Origin uint8

const (
	// OriginIgnoreFile marks rules read from a discovered ignore file.
	OriginIgnoreFile Origin = iota
	// OriginRequired marks forced inclusions that always win.
	OriginRequired
	// OriginExcluded marks forced exclusions such as version control folders.
	OriginExcluded
	// OriginDefault marks the built-in cruft exclusions.
	OriginDefault
	// OriginMain marks the allow rule for the manifest entry point.
	OriginMain
	// OriginFiles marks rules derived from the manifest files allowlist.
	OriginFiles
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case OriginIgnoreFile:
		return "ignore-file"
	case OriginRequired:
		return "required"
	case OriginExcluded:
		return "excluded"
	case OriginDefault:
		return "default"
	case OriginMain:
		return "main"
	case OriginFiles:
		return "files"
	default:
		return "unknown"
	}
}

// Rule is one compiled pattern line.
type Rule struct {
	// Pattern is the source line without its negation prefix.
	Pattern string
	// Negate marks a re-include ("!") rule.
	Negate bool
	// Base is the slash-separated directory the rule is scoped to; "" is the root.
	Base string
	// Anchored is set when the pattern started with "/".
	Anchored bool
	// DirOnly is set when the pattern ended with "/".
	DirOnly bool
	// Origin records where the rule came from.
	Origin Origin
	// Order is the rule position within its Set.
	Order int
	// Err is non-nil when the pattern could not be compiled.
	Err error

	glob     string
	hasSlash bool
	foldCase bool
}

// Valid reports whether the rule compiled.
func (r *Rule) Valid() bool {
	return r.Err == nil && r.glob != ""
}

// Match reports whether rel, a slash-separated path relative to the package
// root, is matched by the rule.
func (r *Rule) Match(rel string, isDir bool) bool {
	if !r.Valid() {
		return false
	}
	if r.DirOnly && !isDir {
		return false
	}

	sub, ok := r.scope(rel)
	if !ok {
		return false
	}
	if r.foldCase {
		sub = strings.ToLower(sub)
	}
	if !r.Anchored && !r.hasSlash {
		sub = sub[strings.LastIndexByte(sub, '/')+1:]
	}

	matched, err := doublestar.Match(r.glob, sub)
	return err == nil && matched
}

// scope returns rel relative to the rule base. Paths outside the base, and
// the base directory itself, are out of scope.
func (r *Rule) scope(rel string) (string, bool) {
	if rel == "" || rel == "." {
		return "", false
	}
	if r.Base == "" {
		return rel, true
	}
	sub, ok := strings.CutPrefix(rel, r.Base+"/")
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
