package filter

import (
	"path"
	"strings"

	"github.com/meigma/pkgpack/internal/rules"
	"github.com/meigma/pkgpack/manifest"
)

// InstallFolder holds installed dependencies. It is never walked as part of
// the package itself; bundled dependencies are collected separately.
const InstallFolder = "node_modules"

// VCSFolders are version control directories that never enter an archive.
var VCSFolders = []string{".git", "CVS", ".svn", ".hg"}

// IgnoreFileNames lists the discovered rule files in precedence order.
var IgnoreFileNames = []string{".yarnignore", ".npmignore", ".gitignore"}

var requiredLines = []string{
	"!/package.json",
	"!/readme*",
	"!/+(license|licence)*",
	"!/+(changes|changelog|history)*",
}

var cruftLines = []string{
	"yarn.lock",
	".lock-wscript",
	".wafpickle-{0..9}",
	"*.swp",
	"._*",
	"npm-debug.log",
	"yarn-error.log",
	".npmrc",
	".yarnrc",
	".npmignore",
	".gitignore",
	".DS_Store",
}

// Defaults holds the fixed rule sets. Build it once with NewDefaults and
// share it; the sets are never modified after construction.
type Defaults struct {
	// Required rules force inclusion and always win.
	Required rules.Set
	// Excluded rules force exclusion of version control data.
	Excluded rules.Set
	// Cruft rules exclude build and editor leftovers unless files is set.
	Cruft rules.Set
}

// NewDefaults compiles the fixed rule sets.
func NewDefaults() Defaults {
	excluded := make([]string, 0, 2*len(VCSFolders))
	for _, dir := range VCSFolders {
		excluded = append(excluded, dir, "**/"+dir+"/**")
	}

	cruft := make([]string, 0, len(VCSFolders)+1+len(cruftLines))
	cruft = append(cruft, VCSFolders...)
	cruft = append(cruft, InstallFolder)
	cruft = append(cruft, cruftLines...)

	return Defaults{
		Required: rules.Compile(requiredLines, rules.WithOrigin(rules.OriginRequired)),
		Excluded: rules.Compile(excluded, rules.WithOrigin(rules.OriginExcluded)),
		Cruft:    rules.Compile(cruft, rules.WithOrigin(rules.OriginDefault)),
	}
}

// BaseSet assembles every rule known before ignore files are read: required,
// excluded, cruft (omitted when the manifest has a files allowlist), the
// main entry point allow rule, and the files allowlist rules.
func BaseSet(d Defaults, m *manifest.Manifest) rules.Set {
	sets := []rules.Set{d.Required, d.Excluded}
	if !m.HasFiles() {
		sets = append(sets, d.Cruft)
		if main := cleanEntry(m.Main); main != "" {
			sets = append(sets, rules.Compile([]string{"!/" + main}, rules.WithOrigin(rules.OriginMain)))
		}
	} else {
		sets = append(sets, FilesSet(m.Files))
	}
	return rules.Concat(sets...)
}

// FilesSet compiles a files allowlist. Every top-level entry is ignored
// first; each listed entry and its contents are then re-included. Entries
// starting with "!" are excluded again after all inclusions.
func FilesSet(files []string) rules.Set {
	lines := []string{"/*"}
	var includes, contents, excludes []string
	for _, f := range files {
		negated := strings.HasPrefix(f, "!")
		raw := strings.TrimPrefix(f, "!")
		entry := cleanEntry(raw)
		if entry == "" {
			if !negated && strings.TrimSpace(raw) != "" {
				includes = append(includes, "!/**")
			}
			continue
		}
		if negated {
			excludes = append(excludes, "/"+entry, "/"+entry+"/**")
			continue
		}
		includes = append(includes, "!/"+entry)
		contents = append(contents, "!/"+entry+"/**")
	}
	lines = append(lines, includes...)
	lines = append(lines, contents...)
	lines = append(lines, excludes...)
	return rules.Compile(lines, rules.WithOrigin(rules.OriginFiles))
}

// cleanEntry normalizes a manifest path to a root-relative slash form.
// It returns "" for the root itself or an empty value.
func cleanEntry(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}
