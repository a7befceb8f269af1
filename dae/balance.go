package dae

import (
	"fmt"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/eval"
	"github.com/mhcho1994/rumoca/logging"
)

// flatEnv adapts the flat component table to eval.Env so the balance counter
// can fold array dimensions and statically known for-ranges through
// parameter/constant bindings.
type flatEnv struct {
	b *builder
}

func (e flatEnv) Binding(name string) (ast.Expression, bool) {
	comp, ok := e.b.fc.ComponentTable[name]
	if !ok || comp.Binding == nil {
		return nil, false
	}
	if comp.Variability != ast.VarParameter && comp.Variability != ast.VarConstant {
		return nil, false
	}
	return comp.Binding, true
}

func (e flatEnv) Dimension(name string, dim int) (int64, bool) {
	comp, ok := e.b.fc.ComponentTable[name]
	if !ok || dim < 1 || dim > len(comp.Dimensions) {
		return 0, false
	}
	d := comp.Dimensions[dim-1]
	if d.Colon || d.Expr == nil {
		return 0, false
	}
	v := eval.Fold(d.Expr, e)
	if v.Kind != eval.KindInt {
		return 0, false
	}
	return v.Int, true
}

// checkBalance runs the equation-balance check: the scalar-counted size of fx plus the
// algorithm contribution must equal |x| + |y| + |z|. Partial and abstract
// classes are exempt; a mismatch is a warning, never an error.
func (b *builder) checkBalance(d *Dae) {
	if b.fc.Partial || b.fc.Abstract {
		d.Balance = BalanceResult{Kind: BalanceSkipped}
		return
	}

	env := flatEnv{b: b}

	eqCount := 0
	for _, eq := range d.FX {
		eqCount += b.scalarCount(env, eq)
	}

	// A z variable's update equations live in fz, one per when branch; the
	// variable itself is still a single unknown, so fz contributes its
	// distinct left-hand sides. Mode variables are not unknowns and their
	// updates (fm, when-statement assignments) never enter the count.
	fzTargets := make(map[string]bool)
	for _, ge := range d.FZ {
		if se, ok := ge.Eq.(*ast.SimpleEquation); ok {
			if name, found := bareName(se.LHS); found {
				fzTargets[name] = true
			}
		}
	}
	eqCount += len(fzTargets)

	for name := range b.algorithmTargets(d.Algorithms) {
		if b.class[name] != "m" && !fzTargets[name] {
			eqCount++
		}
	}

	// unknowns are scalar-counted the same way equations are: an array
	// variable contributes the product of its dimensions.
	unknowns := 0
	for _, vars := range [][]*Variable{d.X, d.Y, d.Z} {
		for _, v := range vars {
			unknowns += variableScalarCount(env, v)
		}
	}
	delta := eqCount - unknowns

	d.Balance = BalanceResult{Delta: delta, Equations: eqCount, Unknowns: unknowns}

	switch {
	case delta > 0:
		d.Balance.Kind = Overdetermined
		b.logger.LogCompileWarning(b.lctx,
			fmt.Sprintf("model %s is overdetermined: %d equations for %d unknowns", d.Name, eqCount, unknowns),
			logging.CatBalance, nil)
	case delta < 0:
		d.Balance.Kind = Underdetermined
		b.logger.LogCompileWarning(b.lctx,
			fmt.Sprintf("model %s is underdetermined: %d equations for %d unknowns", d.Name, eqCount, unknowns),
			logging.CatBalance, nil)
	default:
		d.Balance.Kind = Balanced
	}
}

func variableScalarCount(env flatEnv, v *Variable) int {
	count := 1
	for i := range v.Dimensions {
		if n, ok := env.Dimension(v.Name, i+1); ok {
			count *= int(n)
		}
	}
	return count
}

// scalarCount counts the scalar equations eq contributes: an
// array equation counts the product of its LHS array dimensions, a
// for-equation its statically known range length times the body count, an
// if-equation its first branch (branches of a balanced model agree), and an
// assert nothing.
func (b *builder) scalarCount(env flatEnv, eq ast.Equation) int {
	switch e := eq.(type) {
	case *ast.SimpleEquation:
		if tup, ok := e.LHS.(*ast.TupleExpr); ok {
			// a tuple equation counts the arity of its left-hand side
			return len(tup.Elements)
		}
		if name, ok := bareName(e.LHS); ok {
			if comp, found := b.fc.ComponentTable[name]; found && len(comp.Dimensions) > 0 {
				product := 1
				for i := range comp.Dimensions {
					if n, known := env.Dimension(name, i+1); known {
						product *= int(n)
					}
				}
				return product
			}
		}
		return 1

	case *ast.IfEquation:
		if len(e.Branches) == 0 {
			return 0
		}
		count := 0
		for _, beq := range e.Branches[0].Equations {
			count += b.scalarCount(env, beq)
		}
		return count

	case *ast.ForEquation:
		body := 0
		for _, beq := range e.Body {
			body += b.scalarCount(env, beq)
		}
		length := 1
		if len(e.Iterators) == 1 && e.Iterators[0].Range != nil {
			if n, ok := rangeLength(env, e.Iterators[0].Range); ok {
				length = n
			}
		}
		return body * length

	case *ast.AssertEquation:
		return 0

	default:
		return 1
	}
}

// rangeLength folds a for-iterator range to its static element count.
func rangeLength(env flatEnv, r ast.Expression) (int, bool) {
	re, ok := r.(*ast.RangeExpr)
	if !ok {
		return 0, false
	}

	start := eval.Fold(re.Start, env)
	stop := eval.Fold(re.Stop, env)
	if start.Kind != eval.KindInt || stop.Kind != eval.KindInt {
		return 0, false
	}

	step := int64(1)
	if re.Step != nil {
		sv := eval.Fold(re.Step, env)
		if sv.Kind != eval.KindInt || sv.Int == 0 {
			return 0, false
		}
		step = sv.Int
	}

	n := (stop.Int-start.Int)/step + 1
	if n < 0 {
		n = 0
	}
	return int(n), true
}

// algorithmTargets collects the distinct left-hand-side names assigned across
// the algorithm sections; each contributes one scalar equation to the
// balance.
func (b *builder) algorithmTargets(stmts []ast.Statement) map[string]bool {
	targets := make(map[string]bool)
	var collect func([]ast.Statement)
	collect = func(list []ast.Statement) {
		for _, st := range list {
			switch s := st.(type) {
			case *ast.AssignStatement:
				for _, lhs := range s.LHS {
					if name, ok := bareName(lhs); ok {
						targets[name] = true
					}
				}
			case *ast.IfStatement:
				for _, br := range s.Branches {
					collect(br.Body)
				}
				collect(s.Else)
			case *ast.ForStatement:
				collect(s.Body)
			case *ast.WhileStatement:
				collect(s.Body)
			case *ast.WhenStatement:
				for _, br := range s.Branches {
					collect(br.Body)
				}
			}
		}
	}
	collect(stmts)
	return targets
}
