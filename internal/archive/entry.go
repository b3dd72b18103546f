package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/meigma/pkgpack/walk"
)

// Root is the top-level directory of every archive entry name.
const Root = "package"

const installDir = "node_modules"

// Entry is one member of the archive.
type Entry struct {
	// Name is the archive path, always Root or below it.
	Name string
	// Source is the location of the entry on disk.
	Source string
	// Mode holds the lstat mode bits of Source.
	Mode fs.FileMode
	// Size is the content length of a regular file.
	Size int64
	// ModTime is the modification time of Source.
	ModTime time.Time
	// Linkname is the target of a symbolic link.
	Linkname string
}

// Rewriter maps root-relative paths that escape the package root back
// inside it.
type Rewriter struct {
	// Prefixes are slash-separated locations outside the root, such as "../..".
	// Paths below one of them are rewritten relative to it. The first match wins.
	Prefixes []string
}

// Rewrite returns rel with any leading ".." segments removed.
//
// A path below one of the prefixes is made relative to that prefix.
// Otherwise it is cut at its first node_modules segment, and failing that
// its leading ".." segments are dropped. Paths inside the root are returned
// cleaned but otherwise unchanged. A nil Rewriter only applies the fallbacks.
func (r *Rewriter) Rewrite(rel string) string {
	rel = path.Clean(rel)
	if !outside(rel) {
		return rel
	}

	if r != nil {
		for _, p := range r.Prefixes {
			p = strings.TrimSuffix(p, "/")
			if p == "" {
				continue
			}
			if rest, ok := strings.CutPrefix(rel, p+"/"); ok {
				rel = rest
				break
			}
		}
		if !outside(rel) {
			return rel
		}
	}

	segs := strings.Split(rel, "/")
	if i := slices.Index(segs, installDir); i >= 0 {
		return path.Join(segs[i:]...)
	}
	for len(segs) > 0 && segs[0] == ".." {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return "."
	}
	return path.Join(segs...)
}

func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// EntryName returns the archive name for a root-relative path: "." maps to
// Root and anything else to "Root/<rewritten rel>".
func EntryName(rel string, rw *Rewriter) string {
	rel = rw.Rewrite(rel)
	if rel == "." {
		return Root
	}
	return Root + "/" + rel
}

// Build lstats every kept path below root and returns the archive entries,
// root directory first, sorted by name. Paths whose rewritten names collide
// keep the first occurrence in keep order. Entries that are neither regular
// files, directories nor symbolic links are skipped.
func (a *Assembler) Build(root string, keep []string, rw *Rewriter) ([]Entry, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("stat package root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package root %s: %w", root, errNotDir)
	}

	entries := make([]Entry, 0, len(keep)+1)
	entries = append(entries, Entry{
		Name:    Root,
		Source:  root,
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	})
	seen := map[string]struct{}{Root: {}}

	for _, rel := range keep {
		if rel == "." || rel == "" {
			continue
		}
		name := EntryName(rel, rw)
		if _, ok := seen[name]; ok {
			a.log().Debug("skipping duplicate archive entry", "path", rel, "name", name)
			continue
		}

		e, ok, err := a.entry(root, rel, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(x, y Entry) int {
		return walk.ComparePaths(x.Name, y.Name)
	})
	return entries, nil
}

func (a *Assembler) entry(root, rel, name string) (Entry, bool, error) {
	src := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(src)
	if err != nil {
		return Entry{}, false, fmt.Errorf("stat %s: %w", rel, err)
	}

	e := Entry{
		Name:    name,
		Source:  src,
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
	switch {
	case info.Mode().IsRegular():
		e.Size = info.Size()
	case info.IsDir():
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return Entry{}, false, fmt.Errorf("read link %s: %w", rel, err)
		}
		e.Linkname = filepath.ToSlash(target)
	default:
		a.log().Debug("skipping unsupported file type", "path", rel, "mode", info.Mode().String())
		return Entry{}, false, nil
	}
	return e, true, nil
}

var errNotDir = errors.New("not a directory")
