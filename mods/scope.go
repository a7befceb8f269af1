package mods

import (
	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
)

// Resolved is the result of a name lookup: exactly one of Component or Class
// is set.
type Resolved struct {
	Component *ast.Component
	Class     *ast.ClassDefinition
}

// Scope is one lexical frame of the symbol-table stack the flattener walks
// while instantiating a class: a dictionary of local names (its class's
// components and nested classes) plus an import overlay, linked to its
// enclosing scope.
type Scope struct {
	class  *ast.ClassDefinition
	parent *Scope
	table  *ClassTable

	bindings  map[string]string
	wildcards []string
}

// NewScope opens a scope for class, chained to parent (nil at the root), and
// resolves its import clauses immediately.
func NewScope(class *ast.ClassDefinition, parent *Scope, table *ClassTable, logger *logging.Logger, lctx *logging.LogContext) *Scope {
	s := &Scope{class: class, parent: parent, table: table}
	s.bindings, s.wildcards = resolveImports(class, table, logger, lctx)
	return s
}

// Resolve looks up name starting from this scope, following the five-step
// cascade below. global forces step 5 directly, matching a leading dot.
func (s *Scope) Resolve(name string, global bool) (Resolved, bool) {
	if global {
		if cd, ok := s.table.Lookup(name); ok {
			return Resolved{Class: cd}, true
		}
		return Resolved{}, false
	}

	// step 1: local components and nested classes of K.
	if r, ok := localLookup(s.class, name); ok {
		return r, true
	}

	// step 2: K's extends chain, depth-first, left-to-right, recursively.
	if r, ok := s.resolveInExtends(s.class, name, make(map[string]bool)); ok {
		return r, true
	}

	// step 3: enclosing class scopes (their own local members only; their
	// extends chains were already searched when they were the active scope
	// for their own class body).
	for p := s.parent; p != nil; p = p.parent {
		if r, ok := localLookup(p.class, name); ok {
			return r, true
		}
	}

	// step 4: local imports of K, then of each enclosing class.
	for sc := s; sc != nil; sc = sc.parent {
		if qualified, ok := sc.bindings[name]; ok {
			if cd, ok := s.table.Lookup(qualified); ok {
				return Resolved{Class: cd}, true
			}
		}
		for _, wc := range sc.wildcards {
			if cd, ok := s.table.Lookup(wc + "." + name); ok {
				return Resolved{Class: cd}, true
			}
		}
	}

	// step 5: root class table, treating name as a top-level name.
	if cd, ok := s.table.Lookup(name); ok {
		return Resolved{Class: cd}, true
	}

	return Resolved{}, false
}

// ResolveRef resolves a (possibly dotted, possibly global) class reference,
// combining the five-step cascade (for the first segment) with a plain
// dotted-path descent through the global table (for any remaining
// segments) -- the form extends clauses, component type names, and
// function-call targets all use.
func (s *Scope) ResolveRef(ref ast.ComponentReference) (Resolved, bool) {
	if len(ref.Parts) == 0 {
		return Resolved{}, false
	}

	first := ref.Parts[0].Name
	r, ok := s.Resolve(first, ref.Global)
	if !ok {
		return Resolved{}, false
	}

	if len(ref.Parts) == 1 {
		return r, true
	}

	if r.Class == nil {
		return Resolved{}, false
	}

	qualified := r.Class.Name
	for _, part := range ref.Parts[1:] {
		qualified = qualified + "." + part.Name
	}
	if cd, ok := s.table.Lookup(qualified); ok {
		return Resolved{Class: cd}, true
	}

	return Resolved{}, false
}

func localLookup(class *ast.ClassDefinition, name string) (Resolved, bool) {
	if c, ok := class.ComponentTable[name]; ok {
		return Resolved{Component: c}, true
	}
	if cd, ok := class.ClassTable[name]; ok {
		return Resolved{Class: cd}, true
	}
	return Resolved{}, false
}

// resolveInExtends searches class's extends chain depth-first, left to
// right. visited guards against an infinite extends chain, keyed by
// qualified base-class name.
func (s *Scope) resolveInExtends(class *ast.ClassDefinition, name string, visited map[string]bool) (Resolved, bool) {
	for _, ext := range class.Extends {
		baseName := ext.BaseClass.String()
		if visited[baseName] {
			continue
		}
		visited[baseName] = true

		base, ok := s.lookupExtendBase(class, baseName)
		if !ok {
			continue
		}

		if r, ok := localLookup(base, name); ok {
			return r, true
		}
		if r, ok := s.resolveInExtends(base, name, visited); ok {
			return r, true
		}
	}
	return Resolved{}, false
}

// lookupExtendBase resolves an extends clause's base-class reference. Base
// classes are almost always named relative to the enclosing package, so the
// lookup tries the name as given against the global table first (covering
// both a bare local name, when the extends chain stays within one package
// scan rooted the same way, and a fully dotted name); the flatten package
// (Builder.resolveClassRef) performs the equivalent lookup through a proper
// Scope once the root class's own
// enclosing chain is known.
func (s *Scope) lookupExtendBase(class *ast.ClassDefinition, baseName string) (*ast.ClassDefinition, bool) {
	if cd, ok := s.table.Lookup(baseName); ok {
		return cd, true
	}
	if r, ok := localLookup(class, baseName); ok && r.Class != nil {
		return r.Class, true
	}
	return nil, false
}
