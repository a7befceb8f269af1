package mods

import (
	"fmt"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
)

// resolveImports expands cd's import clauses into direct-name bindings and
// wildcard package paths, covering all four import forms:
//
//	import A.B.C;      -> binds "C"
//	import D = A.B.C;  -> binds "D"
//	import A.B.*;      -> every direct child of A.B visible under its short name
//	import A.B.{X, Y}; -> binds "X" and "Y"
//
// Duplicate bindings and import targets absent from the table are
// ResolveErrors, collected rather than aborting.
func resolveImports(cd *ast.ClassDefinition, table *ClassTable, logger *logging.Logger, lctx *logging.LogContext) (map[string]string, []string) {
	bindings := make(map[string]string)
	var wildcards []string

	bind := func(local, qualified string, pos ast.Position) {
		if _, exists := bindings[local]; exists {
			logger.LogCompileError(lctx, fmt.Sprintf("duplicate import of name %q", local), logging.CatResolve, textPos(pos))
			return
		}
		bindings[local] = qualified
	}

	for _, imp := range cd.Imports {
		switch im := imp.(type) {
		case *ast.QualifiedImport:
			path := im.Path.String()
			if _, ok := table.Lookup(path); !ok {
				logger.LogCompileError(lctx, fmt.Sprintf("import target %q not found", path), logging.CatResolve, textPos(im.Position()))
				continue
			}
			bind(lastSegment(im.Path), path, im.Position())

		case *ast.RenamedImport:
			path := im.Path.String()
			if _, ok := table.Lookup(path); !ok {
				logger.LogCompileError(lctx, fmt.Sprintf("import target %q not found", path), logging.CatResolve, textPos(im.Position()))
				continue
			}
			bind(im.Alias, path, im.Position())

		case *ast.UnqualifiedImport:
			path := im.Path.String()
			if _, ok := table.Lookup(path); !ok {
				logger.LogCompileError(lctx, fmt.Sprintf("import target %q not found", path), logging.CatResolve, textPos(im.Position()))
				continue
			}
			wildcards = append(wildcards, path)

		case *ast.SelectiveImport:
			path := im.Path.String()
			for _, member := range im.Members {
				full := path + "." + member
				if _, ok := table.Lookup(full); !ok {
					logger.LogCompileError(lctx, fmt.Sprintf("import target %q not found", full), logging.CatResolve, textPos(im.Position()))
					continue
				}
				bind(member, full, im.Position())
			}
		}
	}

	return bindings, wildcards
}

// ImportHeads returns the first path segment of every import clause of cd
// and, recursively, of its nested classes -- the top-level package names the
// class table must be able to resolve before flattening begins.
func ImportHeads(cd *ast.ClassDefinition) []string {
	var heads []string

	for _, imp := range cd.Imports {
		var path ast.ComponentReference
		switch im := imp.(type) {
		case *ast.QualifiedImport:
			path = im.Path
		case *ast.RenamedImport:
			path = im.Path
		case *ast.UnqualifiedImport:
			path = im.Path
		case *ast.SelectiveImport:
			path = im.Path
		}
		if len(path.Parts) > 0 {
			heads = append(heads, path.Parts[0].Name)
		}
	}

	for _, nested := range cd.ClassDefs {
		heads = append(heads, ImportHeads(nested)...)
	}

	return heads
}

func lastSegment(cr ast.ComponentReference) string {
	if len(cr.Parts) == 0 {
		return ""
	}
	return cr.Parts[len(cr.Parts)-1].Name
}

func textPos(p ast.Position) *logging.TextPosition {
	return &logging.TextPosition{StartLn: p.StartLn, StartCol: p.StartCol, EndLn: p.EndLn, EndCol: p.EndCol}
}
