package mods

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/common"
	"github.com/mhcho1994/rumoca/logging"
)

// Loader walks a package directory and builds the global ClassTable, keyed
// on package.mo + package.order. The synchronous load itself never spawns
// goroutines; concurrency is available only through the separate Prefetch
// step below.
type Loader struct {
	logger *logging.Logger
	table  *ClassTable

	cacheMu sync.Mutex
	cache   map[string]*ast.StoredDefinition
}

// NewLoader creates a Loader that logs through logger.
func NewLoader(logger *logging.Logger) *Loader {
	return &Loader{
		logger: logger,
		table:  NewClassTable(),
		cache:  make(map[string]*ast.StoredDefinition),
	}
}

// Table returns the ClassTable accumulated so far.
func (l *Loader) Table() *ClassTable {
	return l.table
}

// Load loads rootPath -- a package directory or a single .mo file -- into
// the loader's ClassTable. It returns false if any error was logged.
func (l *Loader) Load(rootPath string) bool {
	fi, err := os.Stat(rootPath)
	if err != nil {
		l.logger.LogConfigError("File", fmt.Sprintf("cannot stat %s: %s", rootPath, err.Error()))
		return false
	}

	if fi.IsDir() {
		l.loadPackageDir(rootPath, "")
	} else {
		l.loadFile(rootPath, "")
	}

	return l.logger.ShouldProceed()
}

// LoadInclude loads an additional standalone file (the CLI's include
// files) into the same ClassTable as a prior Load.
func (l *Loader) LoadInclude(path string) bool {
	l.loadFile(path, "")
	return l.logger.ShouldProceed()
}

func joinQual(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (l *Loader) parse(path string) (*ast.StoredDefinition, bool) {
	l.cacheMu.Lock()
	if sd, ok := l.cache[path]; ok {
		l.cacheMu.Unlock()
		return sd, true
	}
	l.cacheMu.Unlock()

	sd, ok := ast.ParseFile(path, l.logger)
	if ok {
		l.cacheMu.Lock()
		l.cache[path] = sd
		l.cacheMu.Unlock()
	}
	return sd, ok
}

func (l *Loader) loadFile(path, qualPrefix string) {
	sd, ok := l.parse(path)
	if !ok || sd == nil {
		return
	}

	prefix := qualPrefix
	if sd.Within != nil {
		prefix = sd.Within.Name.String()
	}

	for _, cd := range sd.ClassDefs {
		l.table.Add(joinQual(prefix, cd.Name), cd)
	}
}

// loadPackageDir loads the package directory at dir, registering its class
// (and every sibling's class, recursively) under qualPrefix, and returns the
// package's own ClassDefinition so the caller can attach it as a nested
// class of an enclosing package.
func (l *Loader) loadPackageDir(dir, qualPrefix string) *ast.ClassDefinition {
	pkgFile := filepath.Join(dir, common.PackageClassFile)
	sd, ok := l.parse(pkgFile)
	if !ok || sd == nil || len(sd.ClassDefs) != 1 {
		l.logger.LogConfigError("Package", fmt.Sprintf("%s must define exactly one class", pkgFile))
		return nil
	}

	cd := sd.ClassDefs[0]
	qualName := joinQual(qualPrefix, cd.Name)
	l.table.Add(qualName, cd)

	for _, sibling := range l.siblingOrder(dir) {
		subDir := filepath.Join(dir, sibling)
		if fi, err := os.Stat(filepath.Join(subDir, common.PackageClassFile)); err == nil && !fi.IsDir() {
			if subCd := l.loadPackageDir(subDir, qualName); subCd != nil {
				cd.AddClassDef(subCd)
			}
			continue
		}

		subFile := filepath.Join(dir, sibling+common.SrcFileExtension)
		subSd, ok := l.parse(subFile)
		if !ok || subSd == nil {
			continue
		}
		// a sibling file's declared within-prefix must match the package it
		// physically sits in
		if subSd.Within != nil && subSd.Within.Name.String() != qualName {
			l.logger.LogCompileError(&logging.LogContext{FilePath: subFile},
				fmt.Sprintf("file declares 'within %s' but belongs to package %s", subSd.Within.Name.String(), qualName),
				logging.CatResolve, nil)
			continue
		}
		for _, subCd := range subSd.ClassDefs {
			l.table.Add(joinQual(qualName, subCd.Name), subCd)
			cd.AddClassDef(subCd)
		}
	}

	return cd
}

// siblingOrder returns the declaration order of dir's sibling files/
// subdirectories: the contents of package.order when present, one
// identifier per non-empty, non-`#`-comment line; alphabetical
// otherwise.
func (l *Loader) siblingOrder(dir string) []string {
	orderFile := filepath.Join(dir, common.PackageOrderFile)
	if f, err := os.Open(orderFile); err == nil {
		defer f.Close()

		var names []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names = append(names, line)
		}
		return names
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if name == common.PackageClassFile || name == common.PackageOrderFile {
			continue
		}
		base := strings.TrimSuffix(name, common.SrcFileExtension)
		if e.IsDir() {
			base = name
		} else if !strings.HasSuffix(name, common.SrcFileExtension) {
			continue
		}
		if seen[base] {
			continue
		}
		seen[base] = true
		names = append(names, base)
	}
	sort.Strings(names)
	return names
}

// Prefetch parses every .mo file under root concurrently, populating the
// loader's cache ahead of a synchronous Load call. The fan-out is scoped to
// parsing only -- Load itself always runs single-threaded, consuming
// whatever Prefetch already cached.
//
// Each prefetch goroutine parses against its own throwaway, silent Logger
// rather than l.logger: the shared Logger is not safe for concurrent use,
// so diagnostics from a
// prefetched file are discarded here and re-produced, in order, when Load
// reparses that file synchronously -- a prefetch only ever saves parse work
// for files that turn out to be clean.
func (l *Loader) Prefetch(root string) {
	var files []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, common.SrcFileExtension) {
			files = append(files, path)
		}
		return nil
	})

	var wg sync.WaitGroup
	for _, path := range files {
		path := path
		wg.Add(1)
		go func() {
			defer wg.Done()

			silent := logging.NewLogger(logging.LogLevelSilent)
			sd, ok := ast.ParseFile(path, silent)
			if !ok || silent.ErrorCount() > 0 {
				return
			}

			l.cacheMu.Lock()
			l.cache[path] = sd
			l.cacheMu.Unlock()
		}()
	}
	wg.Wait()
}
