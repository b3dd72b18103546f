// Package pkgpack builds distributable package tarballs from a package
// source tree.
//
// A [Packer] reads the package manifest, walks the tree, evaluates the
// built-in rules together with every live .yarnignore, .npmignore and
// .gitignore file, bundles installed dependencies and streams the selected
// files as a gzip-compressed tar with every entry below "package/".
//
// # Quick Start
//
// Write "<name>-<version>.tgz" next to the manifest:
//
//	artifact, err := pkgpack.Run(ctx, "./my-package")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(artifact.Path, artifact.Integrity)
//
// Inspect the selection without writing anything:
//
//	p := pkgpack.New(pkgpack.WithLogger(logger))
//	sel, err := p.Select(ctx, "./my-package")
//	if err != nil {
//	    return err
//	}
//	for _, path := range sel.Keep {
//	    fmt.Println(path)
//	}
//
// Stream the archive elsewhere:
//
//	rc := p.Stream(ctx, "./my-package")
//	defer rc.Close()
//	_, err = io.Copy(dst, rc)
//
// # Selection Rules
//
// package.json, readme, license, licence, changes, changelog and history
// files at the root are always included. Version control folders are always
// excluded. Without a files field in the manifest, common cruft such as
// lock files and editor swap files is excluded and the main entry point is
// re-included. With a files field, only the listed paths are included.
// Discovered ignore files then apply, scoped to their own directory, with
// the last matching pattern winning. Dependencies are bundled regardless of
// any rule.
package pkgpack
