package flatten

import (
	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/eval"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
)

// Builder flattens one root class into a FlatClass. It owns the
// monotonic fresh-name counter used by function inlining and the diagnostic logger for the whole flatten pass.
type Builder struct {
	table  *mods.ClassTable
	logger *logging.Logger
	lctx   *logging.LogContext

	freshCounter int
}

// NewBuilder creates a Builder over table, logging through logger.
func NewBuilder(table *mods.ClassTable, logger *logging.Logger) *Builder {
	return &Builder{table: table, logger: logger, lctx: &logging.LogContext{}}
}

// freshName mints a collision-free temporary name for function inlining:
// prefix followed by a monotonically increasing counter, guaranteeing
// distinctness from any existing flat name without relying on map iteration
// order.
func (b *Builder) freshName(prefix string) string {
	b.freshCounter++
	return prefix + "_" + itoa(b.freshCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

var builtinTypes = map[string]string{
	"Real": "Real", "Integer": "Integer", "Boolean": "Boolean", "String": "String",
}

// Flatten is the entry point: it instantiates rootName and returns
// the resulting FlatClass, or ok=false if any FlattenError/ResolveError was
// logged.
func (b *Builder) Flatten(rootName string) (*FlatClass, bool) {
	cd, ok := b.table.Lookup(rootName)
	if !ok {
		b.logger.LogConfigError("Flatten", "root class not found: "+rootName)
		return nil, false
	}

	rootScope := mods.NewScope(cd, nil, b.table, b.logger, b.lctx)

	fc := b.instantiate(rootScope, cd, nil, true, make(map[string]bool))
	if fc == nil {
		return nil, false
	}

	fc.Name = cd.Name
	fc.Partial = cd.Partial
	fc.Abstract = cd.Kind == ast.ClassFunction || cd.Kind == ast.ClassRecord ||
		cd.Kind == ast.ClassConnector || cd.Kind == ast.ClassPackage || cd.Kind == ast.ClassType

	fc.Equations = b.expandConnects(fc)
	b.inlineFunctions(rootScope, fc)

	return fc, b.logger.ShouldProceed()
}

// instantiate builds the FlatClass for one class instance (root or
// composite sub-component), applying callerMods -- the modifiers reaching
// this instance from its instantiation site (an extends clause or a
// component declaration) -- before any nested instantiation happens.
func (b *Builder) instantiate(scope *mods.Scope, cd *ast.ClassDefinition, callerMods []ast.Modifier, isRoot bool, extendsVisited map[string]bool) *FlatClass {
	m := b.mergeClass(scope, cd, extendsVisited)
	if m == nil {
		return nil
	}

	b.applyModifiers(m, callerMods)

	fc := &FlatClass{}

	for _, comp := range m.components {
		b.instantiateComponent(scope, m, comp, fc, isRoot)
	}

	fc.Equations = append(fc.Equations, m.equations...)
	fc.InitialEquations = append(fc.InitialEquations, m.initialEquations...)
	fc.Algorithms = append(fc.Algorithms, m.algorithms...)
	fc.InitialAlgorithms = append(fc.InitialAlgorithms, m.initialAlgorithms...)

	b.collapseDottedRefs(fc)

	fc.Equations = b.reduceStaticConditionals(scope, m, fc.Equations)

	return fc
}

// collapseDottedRefs rewrites this level's remaining dotted references into
// their flat underscore-joined form: a reference like
// m1.omega_ref resolves to the lifted component m1_omega_ref. References
// that do not name a flat component (time, function targets, enclosing-scope
// names) pass through untouched.
func (b *Builder) collapseDottedRefs(fc *FlatClass) {
	rw := func(ref ast.ComponentReference) ast.ComponentReference {
		if ref.Global || len(ref.Parts) < 2 {
			return ref
		}

		joined := ""
		var subs []ast.Expression
		for i, part := range ref.Parts {
			if i > 0 {
				joined += "_"
			}
			joined += part.Name
			subs = append(subs, part.Subscripts...)
		}

		if _, ok := fc.ComponentTable[joined]; !ok {
			return ref
		}

		out := ref
		out.Parts = []ast.ComponentRefPart{{Name: joined, Subscripts: subs}}
		return out
	}

	fc.Equations = rewriteEquationList(fc.Equations, rw)
	fc.InitialEquations = rewriteEquationList(fc.InitialEquations, rw)
	fc.Algorithms = rewriteStatementList(fc.Algorithms, rw)
	fc.InitialAlgorithms = rewriteStatementList(fc.InitialAlgorithms, rw)
	for _, c := range fc.Components {
		c.Binding = rewriteExpr(c.Binding, rw)
	}
}

// mergeClass collapses cd's extends chain and own elements into one
// declaration list, guarding against self-extension and
// longer cycles via extendsVisited, keyed by class identity.
func (b *Builder) mergeClass(scope *mods.Scope, cd *ast.ClassDefinition, extendsVisited map[string]bool) *merged {
	m := newMerged()

	for _, ext := range cd.Extends {
		base, ok := b.resolveClassRef(scope, ext.BaseClass)
		if !ok {
			b.errorAt(ext.Pos, logging.CatResolve, "unresolved base class %q", ext.BaseClass.String())
			continue
		}

		key := classKey(base)
		if extendsVisited[key] {
			b.errorAt(ext.Pos, logging.CatFlatten, "cyclic inheritance involving %q", base.Name)
			continue
		}

		branchVisited := copyVisited(extendsVisited)
		branchVisited[key] = true

		baseMerged := b.mergeClass(scope, base, branchVisited)
		if baseMerged == nil {
			continue
		}

		b.applyModifiers(baseMerged, ext.Modifiers)
		m.mergeFrom(baseMerged)
	}

	for _, comp := range cd.Components {
		m.upsertComponent(cloneComponent(comp))
	}
	for name, nested := range cd.ClassTable {
		m.classDefs[name] = nested
	}

	m.equations = append(m.equations, cd.Equations...)
	m.initialEquations = append(m.initialEquations, cd.InitialEqs...)
	m.algorithms = append(m.algorithms, cd.Algorithms...)
	m.initialAlgorithms = append(m.initialAlgorithms, cd.InitialAlgs...)

	return m
}

func classKey(cd *ast.ClassDefinition) string {
	return cd.Name + "@" + itoa(int(cd.Pos.StartLn)) + ":" + itoa(cd.Pos.StartCol)
}

func copyVisited(v map[string]bool) map[string]bool {
	out := make(map[string]bool, len(v))
	for k := range v {
		out[k] = true
	}
	return out
}

// resolveClassRef resolves a (possibly dotted) class reference from within
// scope.
func (b *Builder) resolveClassRef(scope *mods.Scope, ref ast.ComponentReference) (*ast.ClassDefinition, bool) {
	r, ok := scope.ResolveRef(ref)
	if !ok || r.Class == nil {
		return nil, false
	}
	return r.Class, true
}

// instantiateComponent classifies comp as atomic or composite and adds its flattened form to fc.
func (b *Builder) instantiateComponent(scope *mods.Scope, m *merged, comp *ast.Component, fc *FlatClass, isRoot bool) {
	// conditional-existence clause: a statically false condition removes the
	// component entirely; a condition that cannot be folded is an error since
	// existence cannot vary at runtime.
	if comp.Condition != nil {
		v := eval.Fold(comp.Condition, mergedEnv{m: m})
		if v.Kind != eval.KindBool {
			b.errorAt(comp.Pos, logging.CatFlatten, "conditional declaration of %q does not reduce to a compile-time boolean", comp.Name)
			return
		}
		if !v.Bool {
			return
		}
	}

	typeName := comp.TypeName.String()

	if base, ok := builtinTypes[typeName]; ok {
		fc.AddComponent(b.leafComponent(comp, base))
		return
	}

	cd, ok := b.resolveClassRef(scope, comp.TypeName)
	if !ok {
		b.errorAt(comp.Pos, logging.CatResolve, "unresolved component type %q", typeName)
		return
	}

	baseName, isAtomicAlias := b.resolveAtomicAlias(scope, cd)
	if isAtomicAlias {
		fc.AddComponent(b.leafComponent(comp, baseName))
		return
	}

	switch cd.Kind {
	case ast.ClassModel, ast.ClassBlock, ast.ClassConnector, ast.ClassRecord, ast.ClassGeneric:
		subScope := mods.NewScope(cd, scope, b.table, b.logger, b.lctx)
		sub := b.instantiate(subScope, cd, comp.Modifiers, false, make(map[string]bool))
		if sub == nil {
			return
		}
		b.liftComposite(comp, sub, fc)
	default:
		b.errorAt(comp.Pos, logging.CatFlatten, "invalid component type %q", typeName)
	}
}

// resolveAtomicAlias follows a `type Name = Base(...);` short class
// definition (parsed as a single synthetic extends clause, ast/parser.go)
// down to its terminal builtin type name, covering plain type aliases and
// `enumeration(...)` declarations (represented as DAE-level integers).
func (b *Builder) resolveAtomicAlias(scope *mods.Scope, cd *ast.ClassDefinition) (string, bool) {
	if cd.Kind != ast.ClassType || len(cd.Components) > 0 {
		return "", false
	}
	if len(cd.Extends) != 1 {
		return "", false
	}

	baseName := cd.Extends[0].BaseClass.String()
	if baseName == "enumeration" {
		return "Integer", true
	}
	if base, ok := builtinTypes[baseName]; ok {
		return base, true
	}

	if next, ok := b.resolveClassRef(scope, cd.Extends[0].BaseClass); ok {
		return b.resolveAtomicAlias(scope, next)
	}

	return "", false
}

func (b *Builder) leafComponent(comp *ast.Component, baseType string) *FlatComponent {
	return &FlatComponent{
		Name:        comp.Name,
		TypeName:    baseType,
		Dimensions:  comp.Dimensions,
		Variability: comp.Variability,
		Causality:   comp.Causality,
		ConnectorK:  comp.ConnectorK,
		Final:       comp.Final,
		Binding:     bindingOf(comp),
		Description: comp.Description,
		Pos:         comp.Pos,
	}
}

// liftComposite merges a composite sub-instance's flattened components and
// equations into the parent, prefixing every name with `<comp.Name>_` and
// rewriting every reference whose head names one of the sub-instance's own
// members. A root-level `input` causality is demoted to plain
// algebraic once it is no longer the root's own input, by clearing
// Causality on lift.
func (b *Builder) liftComposite(comp *ast.Component, sub *FlatClass, fc *FlatClass) {
	prefix := comp.Name

	rw := func(ref ast.ComponentReference) ast.ComponentReference {
		if ref.Global || len(ref.Parts) == 0 {
			return ref
		}
		if _, isMember := sub.ComponentTable[ref.Parts[0].Name]; !isMember {
			return ref
		}
		out := ref
		out.Parts = append([]ast.ComponentRefPart(nil), ref.Parts...)
		out.Parts[0].Name = prefix + "_" + out.Parts[0].Name
		return out
	}

	for _, c := range sub.Components {
		lifted := *c
		lifted.Name = prefix + "_" + c.Name
		lifted.Binding = rewriteExpr(c.Binding, rw)
		if lifted.Causality == ast.CausalityInput {
			lifted.Causality = ast.CausalityNone
		}
		fc.AddComponent(&lifted)
	}

	for _, eq := range sub.Equations {
		fc.Equations = append(fc.Equations, rewriteEquation(eq, rw))
	}
	for _, eq := range sub.InitialEquations {
		fc.InitialEquations = append(fc.InitialEquations, rewriteEquation(eq, rw))
	}
	for _, st := range sub.Algorithms {
		fc.Algorithms = append(fc.Algorithms, rewriteStatement(st, rw))
	}
	for _, st := range sub.InitialAlgorithms {
		fc.InitialAlgorithms = append(fc.InitialAlgorithms, rewriteStatement(st, rw))
	}
}
