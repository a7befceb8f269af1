package flatten

import (
	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/eval"
	"github.com/mhcho1994/rumoca/mods"
)

// mergedEnv adapts a merged declaration set to eval.Env, so the static
// evaluator can fold references to parameters and constants
// through their own declared bindings.
type mergedEnv struct {
	m *merged
}

func (e mergedEnv) Binding(name string) (ast.Expression, bool) {
	comp, ok := e.m.lookupComponent(name)
	if !ok {
		return nil, false
	}
	// only parameters and constants have compile-time-stable bindings; a continuous variable's binding is just its initial equation.
	if comp.Variability != ast.VarParameter && comp.Variability != ast.VarConstant {
		return nil, false
	}
	return bindingOf(comp), true
}

func (e mergedEnv) Dimension(name string, dim int) (int64, bool) {
	comp, ok := e.m.lookupComponent(name)
	if !ok || dim < 1 || dim > len(comp.Dimensions) {
		return 0, false
	}
	d := comp.Dimensions[dim-1]
	if d.Colon || d.Expr == nil {
		return 0, false
	}
	v := eval.Fold(d.Expr, mergedEnv{m: e.m})
	if v.Kind != eval.KindInt {
		return 0, false
	}
	return v.Int, true
}

// reduceStaticConditionals reduces static conditionals: every if-equation branch
// whose condition folds to a compile-time boolean is resolved at flatten
// time, keeping only the equations of the taken branch (or none, if no
// branch and no else is taken); an if-equation with any non-foldable
// condition is left in place as a runtime (event-producing) equation.
func (b *Builder) reduceStaticConditionals(scope *mods.Scope, m *merged, eqs []ast.Equation) []ast.Equation {
	env := mergedEnv{m: m}
	out := make([]ast.Equation, 0, len(eqs))

	for _, eq := range eqs {
		ifEq, ok := eq.(*ast.IfEquation)
		if !ok {
			out = append(out, b.reduceNested(env, eq))
			continue
		}

		reduced, isStatic := b.reduceIfEquation(env, ifEq)
		if isStatic {
			out = append(out, reduced...)
		} else {
			out = append(out, ifEq)
		}
	}

	return out
}

// reduceIfEquation attempts to fold every branch condition of ifEq in
// order; it returns the flattened equation list of whichever branch is
// statically taken and isStatic=true, or isStatic=false if any condition up
// to the taken one fails to fold (the runtime semantics then need the whole
// construct).
func (b *Builder) reduceIfEquation(env mergedEnv, ifEq *ast.IfEquation) ([]ast.Equation, bool) {
	for _, br := range ifEq.Branches {
		v := eval.Fold(br.Condition, env)
		if v.Kind != eval.KindBool {
			return nil, false
		}
		if v.Bool {
			return br.Equations, true
		}
	}
	return ifEq.Else, true
}

// reduceNested recurses into equation forms that themselves contain nested
// equation lists (for-equations, when-equation bodies), so a statically
// foldable if-equation nested inside one still gets reduced.
func (b *Builder) reduceNested(env mergedEnv, eq ast.Equation) ast.Equation {
	switch e := eq.(type) {
	case *ast.ForEquation:
		n := *e
		n.Body = b.reduceEquationList(env, e.Body)
		return &n
	case *ast.WhenEquation:
		n := *e
		n.Branches = make([]ast.WhenEquationBranch, len(e.Branches))
		for i, br := range e.Branches {
			n.Branches[i] = ast.WhenEquationBranch{Condition: br.Condition, Equations: b.reduceEquationList(env, br.Equations)}
		}
		return &n
	default:
		return eq
	}
}

func (b *Builder) reduceEquationList(env mergedEnv, eqs []ast.Equation) []ast.Equation {
	out := make([]ast.Equation, 0, len(eqs))
	for _, eq := range eqs {
		if ifEq, ok := eq.(*ast.IfEquation); ok {
			reduced, isStatic := b.reduceIfEquation(env, ifEq)
			if isStatic {
				out = append(out, reduced...)
				continue
			}
			out = append(out, ifEq)
			continue
		}
		out = append(out, b.reduceNested(env, eq))
	}
	return out
}
