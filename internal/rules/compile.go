package rules

import (
	"fmt"
	"path"
	"strings"
)

// config holds compilation settings shared by every line of one Compile call.
type config struct {
	base          string
	origin        Origin
	caseSensitive bool
}

// Option configures compilation.
type Option func(*config)

// WithBase scopes the compiled rules to dir, a slash-separated path relative
// to the package root. "", "." and "./" all denote the root.
func WithBase(dir string) Option {
	return func(cfg *config) {
		cfg.base = normalizeBase(dir)
	}
}

// WithOrigin tags the compiled rules.
func WithOrigin(o Origin) Option {
	return func(cfg *config) {
		cfg.origin = o
	}
}

// WithCaseSensitive disables the default ASCII case-insensitive matching.
func WithCaseSensitive(caseSensitive bool) Option {
	return func(cfg *config) {
		cfg.caseSensitive = caseSensitive
	}
}

// Compile turns pattern lines into an ordered Set. Skipped lines (blank,
// comments, a bare "!") produce no rule.
func Compile(lines []string, opts ...Option) Set {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	set := make(Set, 0, len(lines))
	for _, line := range lines {
		r, ok := compileLine(line, cfg)
		if !ok {
			continue
		}
		r.Order = len(set)
		set = append(set, r)
	}
	return set
}

// CompileString compiles newline-delimited ignore-file content.
func CompileString(src string, opts ...Option) Set {
	return Compile(strings.Split(src, "\n"), opts...)
}

func compileLine(line string, cfg config) (Rule, bool) {
	line = trimTrailingSpaces(strings.TrimRight(line, "\r"))
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false
	}

	negate := false
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		negate = true
		line = line[1:]
	}
	if line == "" {
		return Rule{}, false
	}

	r := Rule{
		Pattern:  line,
		Negate:   negate,
		Base:     cfg.base,
		Origin:   cfg.origin,
		foldCase: !cfg.caseSensitive,
	}

	p := line
	if rest, ok := strings.CutPrefix(p, "./"); ok {
		p = rest
		r.Anchored = true
	}
	if strings.HasPrefix(p, "/") {
		p = strings.TrimLeft(p, "/")
		r.Anchored = true
	}
	if strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
		r.DirOnly = true
	}
	if p == "" {
		r.Err = fmt.Errorf("%w: %q: empty after normalization", ErrMalformedPattern, line)
		return r, true
	}
	r.hasSlash = strings.Contains(p, "/")

	glob, err := translate(p)
	if err != nil {
		r.Err = fmt.Errorf("%w: %q: %w", ErrMalformedPattern, line, err)
		return r, true
	}
	if r.foldCase {
		glob = strings.ToLower(glob)
	}
	r.glob = glob
	return r, true
}

// trimTrailingSpaces removes trailing spaces unless escaped by "\".
func trimTrailingSpaces(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		if len(s) >= 2 && s[len(s)-2] == '\\' {
			s = s[:len(s)-2] + s[len(s)-1:]
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

func normalizeBase(dir string) string {
	dir = strings.ReplaceAll(dir, `\`, "/")
	dir = path.Clean("/" + dir)
	return strings.TrimPrefix(dir, "/")
}
