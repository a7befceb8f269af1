// Package flatten implements the instantiation/flattening algorithm:
// merging extends chains, applying modifier environments,
// expanding composite components, rewriting references, reducing static
// conditionals, expanding connect equations, and inlining local function
// calls. The entry point is Builder.Flatten.
package flatten

import "github.com/mhcho1994/rumoca/ast"

// FlatComponent is one scalar (or array) variable surviving flattening, its
// name rewritten to the fully prefixed, underscore-joined form.
type FlatComponent struct {
	Name        string
	TypeName    string
	Dimensions  []ast.Dimension
	Variability ast.Variability
	Causality   ast.Causality
	ConnectorK  ast.ConnectorKind
	Final       bool

	// Binding is the component's declaration-equation value, if any (from a
	// `= expr` declaration or a `value` modifier reaching it through an
	// extends/instantiation chain); nil if the component is unbound.
	Binding ast.Expression

	Description string
	Pos         ast.Position
}

// FlatClass is the output of flattening a single root class: a flat
// namespace of components plus the equation/algorithm sections lifted from
// every level of the extends/composition tree, with every reference
// rewritten into the flat namespace.
type FlatClass struct {
	Name string

	Components     []*FlatComponent
	ComponentTable map[string]*FlatComponent

	Equations         []ast.Equation
	InitialEquations  []ast.Equation
	Algorithms        []ast.Statement
	InitialAlgorithms []ast.Statement

	Partial  bool
	Abstract bool // true for `function`/`record`/`connector`/`package`/`type` roots (never balance-checked)
}

// AddComponent appends c, keeping ComponentTable in sync; a later add with
// the same name replaces the earlier entry in place, matching "an extending
// class's local component of the same name as an inherited one overrides
// the inherited one entirely" carried through to the flat
// representation.
func (fc *FlatClass) AddComponent(c *FlatComponent) {
	if fc.ComponentTable == nil {
		fc.ComponentTable = make(map[string]*FlatComponent)
	}
	if existing, ok := fc.ComponentTable[c.Name]; ok {
		*existing = *c
		return
	}
	fc.Components = append(fc.Components, c)
	fc.ComponentTable[c.Name] = c
}
