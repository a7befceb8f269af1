package flatten

import (
	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
)

// merged is the result of collapsing a class's extends chain and its own
// elements into one flat declaration list, before any component has been
// instantiated: components overridden by name, nested
// classes overridden by name, equation/algorithm sections concatenated in
// extends-then-own order.
type merged struct {
	components     []*ast.Component
	componentIndex map[string]int
	classDefs      map[string]*ast.ClassDefinition

	equations         []ast.Equation
	initialEquations  []ast.Equation
	algorithms        []ast.Statement
	initialAlgorithms []ast.Statement
}

func newMerged() *merged {
	return &merged{componentIndex: make(map[string]int), classDefs: make(map[string]*ast.ClassDefinition)}
}

// upsertComponent appends comp, or replaces an existing entry of the same
// name entirely.
func (m *merged) upsertComponent(comp *ast.Component) {
	if idx, ok := m.componentIndex[comp.Name]; ok {
		m.components[idx] = comp
		return
	}
	m.componentIndex[comp.Name] = len(m.components)
	m.components = append(m.components, comp)
}

func (m *merged) lookupComponent(name string) (*ast.Component, bool) {
	if idx, ok := m.componentIndex[name]; ok {
		return m.components[idx], true
	}
	return nil, false
}

// mergeFrom folds base's declarations into m (used when base is an extended
// class); base's own components/nested-classes are inserted first so the
// extending class's own elements, applied afterward by the caller, win
// ties.
func (m *merged) mergeFrom(base *merged) {
	for _, c := range base.components {
		m.upsertComponent(c)
	}
	for name, cd := range base.classDefs {
		m.classDefs[name] = cd
	}
	m.equations = append(m.equations, base.equations...)
	m.initialEquations = append(m.initialEquations, base.initialEquations...)
	m.algorithms = append(m.algorithms, base.algorithms...)
	m.initialAlgorithms = append(m.initialAlgorithms, base.initialAlgorithms...)
}

// cloneComponent makes a shallow copy of comp so modifier application never
// mutates a shared ast.ClassDefinition reachable from the ClassTable (the
// AST is immutable once produced): every instantiation of a class
// works on its own copies.
func cloneComponent(comp *ast.Component) *ast.Component {
	c := *comp
	c.Modifiers = append([]ast.Modifier(nil), comp.Modifiers...)
	c.Dimensions = append([]ast.Dimension(nil), comp.Dimensions...)
	return &c
}

// applyModifiers applies mods (from an extends clause or a component's own
// instantiation modifiers) onto m's components:
// a modifier can replace a binding expression, set `final`, or carry nested
// modifiers for a sub-component. A modifier naming nothing in m, or
// attempting to modify an element already `final`, is a FlattenError.
func (b *Builder) applyModifiers(m *merged, mods []ast.Modifier) {
	for _, mod := range mods {
		b.applyModifier(m, mod)
	}
}

func (b *Builder) applyModifier(m *merged, mod ast.Modifier) {
	name := mod.Name
	if idx := firstDot(name); idx >= 0 {
		name = name[:idx]
	}

	comp, ok := m.lookupComponent(name)
	if !ok {
		b.errorAt(mod.Pos, logging.CatFlatten, "modifier on unknown name %q", mod.Name)
		return
	}

	if comp.Final {
		b.errorAt(mod.Pos, logging.CatFlatten, "illegal modifier of final element %q", name)
		return
	}

	comp = cloneComponent(comp)

	if mod.Redeclare != nil {
		if !comp.Replaceable {
			b.errorAt(mod.Pos, logging.CatFlatten, "redeclaration of non-replaceable element %q", name)
			return
		}
		comp.TypeName = mod.Redeclare.TypeName
		comp.Modifiers = mergeModifierList(comp.Modifiers, mod.Redeclare.Modifiers)
	}

	if mod.Value != nil {
		setValueModifier(comp, mod.Value)
	}

	if mod.Final {
		comp.Final = true
	}

	if mod.Nested != nil {
		comp.Modifiers = mergeModifierList(comp.Modifiers, mod.Nested)
	}

	m.upsertComponent(comp)
}

// setValueModifier replaces (or adds) the synthetic "value" modifier that
// carries a component's binding expression, matching the representation the
// parser gives a `Type x = expr;` declaration (ast/parser.go).
func setValueModifier(comp *ast.Component, value ast.Expression) {
	for i, existing := range comp.Modifiers {
		if existing.Name == "value" {
			comp.Modifiers[i].Value = value
			return
		}
	}
	comp.Modifiers = append(comp.Modifiers, ast.Modifier{Name: "value", Value: value})
}

// mergeModifierList overlays incoming onto base by name, appending any name
// not already present.
func mergeModifierList(base, incoming []ast.Modifier) []ast.Modifier {
	out := append([]ast.Modifier(nil), base...)
	for _, im := range incoming {
		replaced := false
		for i, b := range out {
			if b.Name == im.Name {
				out[i] = im
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, im)
		}
	}
	return out
}

func firstDot(s string) int {
	for i, c := range s {
		if c == '.' {
			return i
		}
	}
	return -1
}

// bindingOf extracts the current "value" modifier expression of comp, if
// any.
func bindingOf(comp *ast.Component) ast.Expression {
	for _, m := range comp.Modifiers {
		if m.Name == "value" {
			return m.Value
		}
	}
	return nil
}
