// Package rules compiles gitignore-style pattern lines into ordered,
// base-scoped rules.
//
// Compilation never fails. A line that cannot be compiled still yields a
// [Rule] whose Err is set; such a rule matches nothing and is reported by
// [Set.Malformed] so callers can log it.
//
// Supported syntax:
//   - blank lines and lines starting with "#" are skipped
//   - "!" negates; "\#" and "\!" escape a literal leading token
//   - a leading "/" anchors the pattern to the rule base
//   - a trailing "/" restricts the pattern to directories
//   - a pattern with an interior "/" matches the base-relative path;
//     otherwise it matches the basename at any depth below the base
//   - "*", "?", "**", "[...]" and "{a,b}" glob syntax
//   - brace ranges "{0..9}", "{a..f}", "{01..10}", "{1..9..2}"
//   - extglob groups "@(a|b)" and "+(a|b)"
package rules
