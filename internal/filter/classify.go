package filter

import (
	"path"
	"slices"
	"strings"

	"github.com/meigma/pkgpack/internal/rules"
	"github.com/meigma/pkgpack/walk"
)

// Decision is the outcome of evaluating a rule set for one path.
type Decision uint8

const (
	// Inherit means no rule matched; the nearest decided ancestor applies.
	Inherit Decision = iota
	// Keep includes the path.
	Keep
	// Ignore excludes the path.
	Ignore
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Ignore:
		return "ignore"
	default:
		return "inherit"
	}
}

// Decide folds set into the decision for rel.
//
// Among ordinary rules the last match wins: a negated rule keeps, any other
// ignores. A matching Excluded rule overrides ordinary rules, and a matching
// Required rule overrides everything.
func Decide(set rules.Set, rel string, isDir bool) Decision {
	var required, excluded, last Decision
	for i := range set {
		r := &set[i]
		if !r.Match(rel, isDir) {
			continue
		}
		d := Ignore
		if r.Negate {
			d = Keep
		}
		switch r.Origin {
		case rules.OriginRequired:
			required = d
		case rules.OriginExcluded:
			excluded = d
		default:
			last = d
		}
	}

	for _, d := range []Decision{required, excluded, last} {
		if d != Inherit {
			return d
		}
	}
	return Inherit
}

// Partitions holds the final keep and ignore sets of root-relative paths.
// A path is in at most one of them.
type Partitions struct {
	keep    map[string]struct{}
	ignored map[string]struct{}
}

// NewPartitions returns empty partitions.
func NewPartitions() *Partitions {
	return &Partitions{
		keep:    make(map[string]struct{}),
		ignored: make(map[string]struct{}),
	}
}

// Kept reports whether rel is in the keep set.
func (p *Partitions) Kept(rel string) bool {
	_, ok := p.keep[rel]
	return ok
}

// Ignored reports whether rel is in the ignore set.
func (p *Partitions) Ignored(rel string) bool {
	_, ok := p.ignored[rel]
	return ok
}

// Keep moves rel into the keep set.
func (p *Partitions) Keep(rel string) {
	delete(p.ignored, rel)
	p.keep[rel] = struct{}{}
}

// Ignore moves rel into the ignore set.
func (p *Partitions) Ignore(rel string) {
	delete(p.keep, rel)
	p.ignored[rel] = struct{}{}
}

// Force keeps rel and every ancestor directory inside the root.
func (p *Partitions) Force(rel string) {
	p.Keep(rel)
	p.keepAncestors(rel)
}

// KeepList returns the keep set in depth-first order.
func (p *Partitions) KeepList() []string {
	return sortedKeys(p.keep)
}

// IgnoredList returns the ignore set in depth-first order.
func (p *Partitions) IgnoredList() []string {
	return sortedKeys(p.ignored)
}

// keepAncestors promotes the parents of rel. Paths outside the root have no
// in-root ancestors to promote.
func (p *Partitions) keepAncestors(rel string) {
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		p.Keep(dir)
	}
}

// Classify partitions files using set.
//
// Paths are decided top-down. A path no rule matches is held as a possible
// keep until its nearest decided ancestor is known, then takes that decision
// (Keep when no ancestor decided). Afterwards every ancestor of a kept path
// is promoted to Keep so rescued descendants have their directories;
// siblings keep the decision they inherited.
func Classify(files []walk.FileRecord, set rules.Set) *Partitions {
	ordered := slices.Clone(files)
	slices.SortStableFunc(ordered, func(a, b walk.FileRecord) int {
		if c := a.Depth() - b.Depth(); c != 0 {
			return c
		}
		return walk.ComparePaths(a.Relative, b.Relative)
	})

	parts := NewPartitions()
	resolved := make(map[string]Decision, len(ordered))
	var possibleKeep []string

	for _, f := range ordered {
		d := Decide(set, f.Relative, f.IsDir())
		if d == Inherit {
			possibleKeep = append(possibleKeep, f.Relative)
			continue
		}
		resolved[f.Relative] = d
	}

	// possibleKeep is already ordered top-down, so an undecided parent is
	// resolved before any of its children.
	for _, rel := range possibleKeep {
		resolved[rel] = inherited(resolved, rel)
	}

	for _, f := range ordered {
		if resolved[f.Relative] == Keep {
			parts.Keep(f.Relative)
		} else {
			parts.Ignore(f.Relative)
		}
	}

	for _, rel := range parts.KeepList() {
		parts.keepAncestors(rel)
	}
	return parts
}

// inherited returns the decision of the nearest decided ancestor of rel.
func inherited(resolved map[string]Decision, rel string) Decision {
	for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
		if d, ok := resolved[dir]; ok && d != Inherit {
			return d
		}
	}
	return Keep
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, walk.ComparePaths)
	return out
}
