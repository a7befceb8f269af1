package mods

import "github.com/mhcho1994/rumoca/ast"

// ClassTable is the single global mapping from fully-qualified class name
// (dot-separated) to its ClassDefinition, populated by Loader.Load.
// It follows the same ordered-map shape as the rest of the AST layer: a map
// for lookup plus an order-preserving slice.
type ClassTable struct {
	byName map[string]*ast.ClassDefinition
	names  []string
}

// NewClassTable creates an empty ClassTable.
func NewClassTable() *ClassTable {
	return &ClassTable{byName: make(map[string]*ast.ClassDefinition)}
}

// Add registers cd under its fully-qualified name. A later Add with the same
// name overwrites the earlier entry but keeps its original position in
// Names.
func (t *ClassTable) Add(qualifiedName string, cd *ast.ClassDefinition) {
	if _, exists := t.byName[qualifiedName]; !exists {
		t.names = append(t.names, qualifiedName)
	}
	t.byName[qualifiedName] = cd
}

// Lookup returns the class registered under qualifiedName, if any.
func (t *ClassTable) Lookup(qualifiedName string) (*ast.ClassDefinition, bool) {
	cd, ok := t.byName[qualifiedName]
	return cd, ok
}

// Names returns every registered fully-qualified name, in insertion order.
func (t *ClassTable) Names() []string {
	return t.names
}

// Children returns the fully-qualified names of every class registered
// directly under parent (one dot below it), in insertion order.
func (t *ClassTable) Children(parent string) []string {
	prefix := parent + "."
	var out []string
	for _, n := range t.names {
		if len(n) <= len(prefix) || n[:len(prefix)] != prefix {
			continue
		}
		rest := n[len(prefix):]
		isDirect := true
		for _, c := range rest {
			if c == '.' {
				isDirect = false
				break
			}
		}
		if isDirect {
			out = append(out, n)
		}
	}
	return out
}
