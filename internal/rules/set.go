package rules

// Set is an ordered rule sequence. Later rules take precedence over earlier
// ones for the same path.
type Set []Rule

// Concat joins sets in order and renumbers Order across the result.
func Concat(sets ...Set) Set {
	total := 0
	for _, s := range sets {
		total += len(s)
	}

	out := make(Set, 0, total)
	for _, s := range sets {
		out = append(out, s...)
	}
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Malformed returns the rules that failed to compile.
func (s Set) Malformed() []Rule {
	var out []Rule
	for i := range s {
		if s[i].Err != nil {
			out = append(out, s[i])
		}
	}
	return out
}
