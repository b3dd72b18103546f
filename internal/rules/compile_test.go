package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchCase struct {
	path  string
	isDir bool
	want  bool
}

func assertMatches(t *testing.T, r Rule, cases []matchCase) {
	t.Helper()
	for _, c := range cases {
		assert.Equal(t, c.want, r.Match(c.path, c.isDir), "pattern %q base %q path %q dir=%v", r.Pattern, r.Base, c.path, c.isDir)
	}
}

func TestCompileSkipsBlankAndComments(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"", "   ", "# comment", "!", "*.log", "\r", "\t"})
	require.Len(t, set, 1)
	assert.Equal(t, "*.log", set[0].Pattern)
	assert.Equal(t, 0, set[0].Order)
}

func TestCompileNegationAndEscapes(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"!keep.log", `\!bang`, `\#hash`, "trailing   ", `space\ `})
	require.Len(t, set, 5)

	assert.True(t, set[0].Negate)
	assert.Equal(t, "keep.log", set[0].Pattern)

	assert.False(t, set[1].Negate)
	assert.True(t, set[1].Match("!bang", false))

	assert.True(t, set[2].Match("#hash", false))
	assert.Equal(t, "trailing", set[3].Pattern)
	assert.True(t, set[4].Match("space ", false))
}

func TestRuleAnchoring(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"/build"})
	require.Len(t, set, 1)
	assert.True(t, set[0].Anchored)

	assertMatches(t, set[0], []matchCase{
		{"build", true, true},
		{"build", false, true},
		{"src/build", true, false},
		{"build/out.js", false, false},
	})
}

func TestRuleUnanchoredMatchesAnyDepth(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"*.log"})
	assertMatches(t, set[0], []matchCase{
		{"a.log", false, true},
		{"deep/nested/b.log", false, true},
		{"a.log.txt", false, false},
	})
}

func TestRuleInteriorSlash(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"docs/*.md", "**/fixtures"})
	assertMatches(t, set[0], []matchCase{
		{"docs/a.md", false, true},
		{"src/docs/a.md", false, false},
		{"docs/sub/a.md", false, false},
	})
	assertMatches(t, set[1], []matchCase{
		{"fixtures", true, true},
		{"test/fixtures", true, true},
		{"test/fixtures/a.json", false, false},
	})
}

func TestRuleDirOnly(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"tmp/"})
	require.True(t, set[0].DirOnly)
	assertMatches(t, set[0], []matchCase{
		{"tmp", true, true},
		{"a/tmp", true, true},
		{"tmp", false, false},
	})
}

func TestRuleDoubleStar(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"lib/**/*.test.js"})
	assertMatches(t, set[0], []matchCase{
		{"lib/a.test.js", false, true},
		{"lib/x/y/a.test.js", false, true},
		{"src/lib/a.test.js", false, false},
	})
}

func TestRuleCaseFolding(t *testing.T) {
	t.Parallel()

	folded := Compile([]string{"/README*"})
	assert.True(t, folded[0].Match("readme.md", false))
	assert.True(t, folded[0].Match("ReadMe.MD", false))

	exact := Compile([]string{"/README*"}, WithCaseSensitive(true))
	assert.True(t, exact[0].Match("README.md", false))
	assert.False(t, exact[0].Match("readme.md", false))
}

func TestRuleBaseScope(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"*.tmp", "/only-top", "nested/*.js"}, WithBase("pkg/sub"))
	require.Len(t, set, 3)
	for _, r := range set {
		assert.Equal(t, "pkg/sub", r.Base)
	}

	assertMatches(t, set[0], []matchCase{
		{"pkg/sub/a.tmp", false, true},
		{"pkg/sub/x/y/a.tmp", false, true},
		{"pkg/a.tmp", false, false},
		{"a.tmp", false, false},
		{"pkg/subway/a.tmp", false, false},
	})
	assertMatches(t, set[1], []matchCase{
		{"pkg/sub/only-top", false, true},
		{"pkg/sub/x/only-top", false, false},
	})
	assertMatches(t, set[2], []matchCase{
		{"pkg/sub/nested/a.js", false, true},
		{"nested/a.js", false, false},
	})

	assert.False(t, set[0].Match("pkg/sub", true), "base directory itself is out of scope")
}

func TestWithBaseNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{".", ""},
		{"./", ""},
		{"./a/b/", "a/b"},
		{`a\b`, "a/b"},
		{"/a", "a"},
	}
	for _, tt := range tests {
		set := Compile([]string{"x"}, WithBase(tt.in))
		assert.Equal(t, tt.want, set[0].Base, "input %q", tt.in)
	}
}

func TestCompileDotSlashAnchors(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"./dist"})
	assert.True(t, set[0].Anchored)
	assert.True(t, set[0].Match("dist", true))
	assert.False(t, set[0].Match("a/dist", true))
}

func TestCompileMalformed(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"ok", "[abc", "{a,b", "@(open", "/", "{1..99999}", "*(a|b)", "?(a)", "x!(y)"},
		WithOrigin(OriginIgnoreFile))
	require.Len(t, set, 9)

	assert.True(t, set[0].Valid())
	bad := set.Malformed()
	require.Len(t, bad, 8)
	for _, r := range bad {
		assert.ErrorIs(t, r.Err, ErrMalformedPattern)
		assert.False(t, r.Valid())
		assert.False(t, r.Match(r.Pattern, false))
		assert.False(t, r.Match("anything", true))
	}
}

func TestCompileOriginAndOrder(t *testing.T) {
	t.Parallel()

	set := Compile([]string{"a", "# skip", "b"}, WithOrigin(OriginFiles))
	require.Len(t, set, 2)
	assert.Equal(t, OriginFiles, set[0].Origin)
	assert.Equal(t, []int{0, 1}, []int{set[0].Order, set[1].Order})
}

func TestCompileString(t *testing.T) {
	t.Parallel()

	set := CompileString("# header\r\nnode_modules\r\n\r\n!keep\n")
	require.Len(t, set, 2)
	assert.Equal(t, "node_modules", set[0].Pattern)
	assert.True(t, set[1].Negate)
}

func TestConcatRenumbers(t *testing.T) {
	t.Parallel()

	a := Compile([]string{"a", "b"})
	b := Compile([]string{"c"})
	set := Concat(a, nil, b)

	require.Len(t, set, 3)
	for i, r := range set {
		assert.Equal(t, i, r.Order)
	}
	assert.Equal(t, "c", set[2].Pattern)
	assert.Equal(t, 0, b[0].Order, "inputs are not modified")
}

func TestOriginString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "required", OriginRequired.String())
	assert.Equal(t, "ignore-file", OriginIgnoreFile.String())
	assert.Equal(t, "unknown", Origin(99).String())
}
