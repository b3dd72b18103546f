package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// maxRangeItems caps the number of alternatives one brace range may produce.
const maxRangeItems = 1024

var braceRangeRE = regexp.MustCompile(`\{(-?[0-9]+|[a-zA-Z])\.\.(-?[0-9]+|[a-zA-Z])(?:\.\.(-?[0-9]+))?\}`)

// translate rewrites the extensions doublestar lacks (extglob groups and
// brace ranges) into plain alternation and validates the result.
func translate(p string) (string, error) {
	p, err := expandExtglob(p)
	if err != nil {
		return "", err
	}
	p, err = expandRanges(p)
	if err != nil {
		return "", err
	}
	p = escapeStrayBraces(p)
	if !doublestar.ValidatePattern(p) {
		return "", fmt.Errorf("invalid glob %q", p)
	}
	return p, nil
}

// expandExtglob rewrites "@(a|b)" and "+(a|b)" to "{a,b}". A "+" group
// matching a repeated alternative is not supported; one occurrence matches.
// The "*(", "?(" and "!(" groups have no alternation form and are rejected.
func expandExtglob(p string) (string, error) {
	var b strings.Builder
	b.Grow(len(p))

	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '\\' && i+1 < len(p) {
			b.WriteByte(c)
			b.WriteByte(p[i+1])
			i++
			continue
		}
		if c == '[' {
			if end := closingBracket(p, i); end > 0 {
				b.WriteString(p[i : end+1])
				i = end
				continue
			}
		}
		if strings.IndexByte("*?!", c) >= 0 && i+1 < len(p) && p[i+1] == '(' {
			return "", fmt.Errorf("%w: %q", errUnsupportedGroup, p[i:i+2])
		}
		if (c == '@' || c == '+') && i+1 < len(p) && p[i+1] == '(' {
			end := closingParen(p, i+1)
			if end < 0 {
				return "", errUnclosedGroup
			}
			inner, err := expandExtglob(p[i+2 : end])
			if err != nil {
				return "", err
			}
			b.WriteByte('{')
			b.WriteString(alternatives(inner))
			b.WriteByte('}')
			i = end
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// closingParen returns the index of the ")" matching the "(" at open, or -1.
func closingParen(p string, open int) int {
	depth := 0
	for i := open; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case '[':
			if end := closingBracket(p, i); end > 0 {
				i = end
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// alternatives replaces "|" separators outside braces and bracket classes
// with ",".
func alternatives(inner string) string {
	b := []byte(inner)
	depth := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '[':
			if end := closingBracket(inner, i); end > 0 {
				i = end
			}
		case '{':
			depth++
		case '}':
			depth--
		case '|':
			if depth == 0 {
				b[i] = ','
			}
		}
	}
	return string(b)
}

// closingBracket returns the index of the "]" closing the class opened at
// open, or -1. A "]" right after the opening "[" or "[!" is a member.
func closingBracket(p string, open int) int {
	i := open + 1
	if i < len(p) && (p[i] == '!' || p[i] == '^') {
		i++
	}
	if i < len(p) && p[i] == ']' {
		i++
	}
	for ; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}

// escapeStrayBraces escapes every "}" that closes no open "{", such as the
// end of an escaped "\{...}" literal.
func escapeStrayBraces(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	depth := 0
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(p) {
				i++
				b.WriteByte(p[i])
			}
			continue
		case '[':
			if end := closingBracket(p, i); end > 0 {
				b.WriteString(p[i : end+1])
				i = end
				continue
			}
		case '{':
			depth++
		case '}':
			if depth == 0 {
				b.WriteString(`\}`)
				continue
			}
			depth--
		}
		b.WriteByte(c)
	}
	return b.String()
}

// expandRanges replaces every unescaped brace range with its alternation.
func expandRanges(p string) (string, error) {
	matches := braceRangeRE.FindAllStringSubmatchIndex(p, -1)
	if len(matches) == 0 {
		return p, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && p[start-1] == '\\' {
			continue
		}
		step := ""
		if m[6] >= 0 {
			step = p[m[6]:m[7]]
		}
		items, err := rangeItems(p[m[2]:m[3]], p[m[4]:m[5]], step)
		if err != nil {
			return "", err
		}
		if items == nil {
			continue
		}
		b.WriteString(p[last:start])
		b.WriteByte('{')
		b.WriteString(strings.Join(items, ","))
		b.WriteByte('}')
		last = end
	}
	b.WriteString(p[last:])
	return b.String(), nil
}

// rangeItems expands one range. It returns nil when the bounds mix numbers
// and letters, in which case the text is left as a literal alternation.
func rangeItems(from, to, step string) ([]string, error) {
	inc := 1
	if step != "" {
		n, err := strconv.Atoi(step)
		if err != nil {
			return nil, err
		}
		inc = max(abs(n), 1)
	}

	lo, errLo := strconv.Atoi(from)
	hi, errHi := strconv.Atoi(to)
	switch {
	case errLo == nil && errHi == nil:
		width := 0
		if zeroPadded(from) || zeroPadded(to) {
			width = max(len(from), len(to))
		}
		return spread(lo, hi, inc, func(v int) string {
			return fmt.Sprintf("%0*d", width, v)
		})
	case errLo != nil && errHi != nil:
		return spread(int(from[0]), int(to[0]), inc, func(v int) string {
			return string(rune(v))
		})
	default:
		return nil, nil
	}
}

func spread(lo, hi, inc int, format func(int) string) ([]string, error) {
	if abs(hi-lo)/inc+1 > maxRangeItems {
		return nil, errRangeTooLarge
	}

	dir := 1
	if hi < lo {
		dir = -1
	}
	var items []string
	for v := lo; (dir > 0 && v <= hi) || (dir < 0 && v >= hi); v += dir * inc {
		items = append(items, format(v))
	}
	return items, nil
}

func zeroPadded(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
