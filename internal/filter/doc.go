// Package filter decides which walked paths belong in a package archive.
//
// Rule sets are assembled once per manifest by [BaseSet] and extended with
// the rules of every live ignore file ([LiveIgnoreFiles], [LoadIgnoreRules]).
// [Decide] folds a rule set into the decision for a single path and
// [Classify] applies it to a whole walk, cascading directory decisions to
// descendants that no rule matches.
package filter
