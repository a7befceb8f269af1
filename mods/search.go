package mods

import (
	"os"
	"path/filepath"

	"github.com/mhcho1994/rumoca/common"
)

// SearchPath locates a top-level package name within a list of directories:
// a match is a subdirectory containing a package.mo, or a bare `<name>.mo`
// file.
func SearchPath(roots []string, name string) (string, bool) {
	for _, root := range roots {
		if path, ok := checkPath(root, name); ok {
			return path, true
		}
	}
	return "", false
}

// checkPath reports whether root contains a package or file satisfying name,
// and returns the path to load.
func checkPath(root, name string) (string, bool) {
	pkgDir := filepath.Join(root, name)
	if fi, err := os.Stat(filepath.Join(pkgDir, common.PackageClassFile)); err == nil && !fi.IsDir() {
		return pkgDir, true
	}

	filePath := filepath.Join(root, name+common.SrcFileExtension)
	if fi, err := os.Stat(filePath); err == nil && !fi.IsDir() {
		return filePath, true
	}

	return "", false
}

// DefaultSearchRoots builds the MODELICAPATH-derived search list: the
// environment variable first, then any configured project search paths.
func DefaultSearchRoots(cfg *Config) []string {
	var roots []string
	roots = append(roots, common.SplitModelicaPath(os.Getenv(common.ModelicaPathEnv))...)
	roots = append(roots, cfg.SearchPaths...)
	return roots
}
