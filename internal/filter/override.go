package filter

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/pkgpack/internal/rules"
	"github.com/meigma/pkgpack/walk"
)

// IsIgnoreFile reports whether name is a discovered rule file basename.
func IsIgnoreFile(name string) bool {
	return slices.Contains(IgnoreFileNames, name)
}

// LiveIgnoreFiles selects the discovered ignore files whose rules apply.
//
// A .gitignore is superseded by a .npmignore or .yarnignore in the same
// directory. Any other ignore file is dead when its directory is not kept
// under prior, the rules known before ignore files are read; dead files are
// never read. Root-level files are always live. Live files are returned
// shallow to deep so deeper rules are appended later and win ties.
func LiveIgnoreFiles(files []walk.FileRecord, prior rules.Set) (live, dead []walk.FileRecord) {
	present := make(map[string]struct{})
	var found []walk.FileRecord
	for _, f := range files {
		if f.IsDir() || !IsIgnoreFile(f.Basename) {
			continue
		}
		found = append(found, f)
		present[f.Relative] = struct{}{}
	}
	if len(found) == 0 {
		return nil, nil
	}

	parts := Classify(files, prior)
	for _, f := range found {
		dir := path.Dir(f.Relative)
		switch {
		case f.Basename == ".gitignore" && superseded(present, dir):
			dead = append(dead, f)
		case dir != "." && !parts.Kept(dir):
			dead = append(dead, f)
		default:
			live = append(live, f)
		}
	}

	slices.SortStableFunc(live, func(a, b walk.FileRecord) int {
		if c := a.Depth() - b.Depth(); c != 0 {
			return c
		}
		return walk.ComparePaths(a.Relative, b.Relative)
	})
	return live, dead
}

func superseded(present map[string]struct{}, dir string) bool {
	for _, name := range IgnoreFileNames {
		if name == ".gitignore" {
			continue
		}
		if _, ok := present[path.Join(dir, name)]; ok {
			return true
		}
	}
	return false
}

// LoadIgnoreRules reads live ignore files concurrently and compiles each
// against its own directory. The result preserves the order of files.
// concurrency < 1 uses a default derived from GOMAXPROCS.
func LoadIgnoreRules(ctx context.Context, files []walk.FileRecord, concurrency int) (rules.Set, error) {
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0) * 4
	}

	slots := make([]rules.Set, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f.Absolute)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrUnreadableIgnoreFile, f.Relative, err)
			}
			slots[i] = rules.CompileString(string(data),
				rules.WithBase(path.Dir(f.Relative)),
				rules.WithOrigin(rules.OriginIgnoreFile),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rules.Concat(slots...), nil
}
