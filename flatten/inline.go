package flatten

import (
	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
)

// maxInlineDepth is the depth limit checked before each inlining. Inlining
// does not descend into a lifted function body (its own calls stay calls),
// so every call is inlined at depth 0.
const maxInlineDepth = 16

// inlineFunctions inlines local function calls in the equation and
// initial-equation sections: every call there to a function whose body
// is present in the root table is replaced by a reference to a fresh output
// variable, with the function's algorithm lifted into the flat class against
// fresh temporaries for each input/output/protected local. External functions
// pass through verbatim. Calls inside algorithm sections, including those in
// a lifted function body, are not inlined.
func (b *Builder) inlineFunctions(scope *mods.Scope, fc *FlatClass) {
	fc.Equations = b.inlineInEquations(scope, fc, fc.Equations, 0)
	fc.InitialEquations = b.inlineInEquations(scope, fc, fc.InitialEquations, 0)
}

// inlineInEquations rewrites each equation in eqs, replacing inlinable calls
// and appending any input-binding equations the replacements produce directly
// before the equation that triggered them, so emission order stays
// deterministic.
func (b *Builder) inlineInEquations(scope *mods.Scope, fc *FlatClass, eqs []ast.Equation, depth int) []ast.Equation {
	var out []ast.Equation

	for _, eq := range eqs {
		switch e := eq.(type) {
		case *ast.SimpleEquation:
			if tup, isTuple := e.LHS.(*ast.TupleExpr); isTuple {
				out = append(out, b.expandTupleEquation(scope, fc, &out, tup, e.RHS, depth)...)
				continue
			}
			n := *e
			n.LHS = b.inlineInExpr(scope, fc, &out, e.LHS, depth)
			n.RHS = b.inlineInExpr(scope, fc, &out, e.RHS, depth)
			out = append(out, &n)

		case *ast.IfEquation:
			n := *e
			n.Branches = make([]ast.IfEquationBranch, len(e.Branches))
			for i, br := range e.Branches {
				n.Branches[i] = ast.IfEquationBranch{
					Condition: b.inlineInExpr(scope, fc, &out, br.Condition, depth),
					Equations: b.inlineInEquations(scope, fc, br.Equations, depth),
				}
			}
			n.Else = b.inlineInEquations(scope, fc, e.Else, depth)
			out = append(out, &n)

		case *ast.WhenEquation:
			n := *e
			n.Branches = make([]ast.WhenEquationBranch, len(e.Branches))
			for i, br := range e.Branches {
				n.Branches[i] = ast.WhenEquationBranch{
					Condition: b.inlineInExpr(scope, fc, &out, br.Condition, depth),
					Equations: b.inlineInEquations(scope, fc, br.Equations, depth),
				}
			}
			out = append(out, &n)

		case *ast.ForEquation:
			n := *e
			n.Body = b.inlineInEquations(scope, fc, e.Body, depth)
			out = append(out, &n)

		default:
			out = append(out, eq)
		}
	}

	return out
}

// inlineInExpr walks expr bottom-up; when it finds a call to a local,
// non-external function it performs the inlining and returns a reference to
// the call's fresh output variable. Input-binding equations are appended to
// pre.
func (b *Builder) inlineInExpr(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, expr ast.Expression, depth int) ast.Expression {
	if expr == nil {
		return nil
	}

	switch e := expr.(type) {
	case *ast.UnaryExpr:
		n := *e
		n.Operand = b.inlineInExpr(scope, fc, pre, e.Operand, depth)
		return &n
	case *ast.BinaryExpr:
		n := *e
		n.Left = b.inlineInExpr(scope, fc, pre, e.Left, depth)
		n.Right = b.inlineInExpr(scope, fc, pre, e.Right, depth)
		return &n
	case *ast.RangeExpr:
		n := *e
		n.Start = b.inlineInExpr(scope, fc, pre, e.Start, depth)
		n.Step = b.inlineInExpr(scope, fc, pre, e.Step, depth)
		n.Stop = b.inlineInExpr(scope, fc, pre, e.Stop, depth)
		return &n
	case *ast.IfExpr:
		n := *e
		n.Conditions = b.inlineInExprList(scope, fc, pre, e.Conditions, depth)
		n.Branches = b.inlineInExprList(scope, fc, pre, e.Branches, depth)
		n.ElseBranch = b.inlineInExpr(scope, fc, pre, e.ElseBranch, depth)
		return &n
	case *ast.ArrayExpr:
		n := *e
		n.Elements = b.inlineInExprList(scope, fc, pre, e.Elements, depth)
		return &n
	case *ast.MatrixExpr:
		n := *e
		n.Rows = make([][]ast.Expression, len(e.Rows))
		for i, row := range e.Rows {
			n.Rows[i] = b.inlineInExprList(scope, fc, pre, row, depth)
		}
		return &n
	case *ast.TupleExpr:
		n := *e
		n.Elements = b.inlineInExprList(scope, fc, pre, e.Elements, depth)
		return &n
	case *ast.DerExpr:
		n := *e
		n.Operand = b.inlineInExpr(scope, fc, pre, e.Operand, depth)
		return &n
	case *ast.PreExpr:
		n := *e
		n.Operand = b.inlineInExpr(scope, fc, pre, e.Operand, depth)
		return &n
	case *ast.CallExpr:
		return b.inlineInCallExpr(scope, fc, pre, e, depth)
	default:
		return expr
	}
}

func (b *Builder) inlineInExprList(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, exprs []ast.Expression, depth int) []ast.Expression {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = b.inlineInExpr(scope, fc, pre, e, depth)
	}
	return out
}

func (b *Builder) inlineInCallExpr(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, call *ast.CallExpr, depth int) ast.Expression {
	fn, inlinable := b.inlinableFunction(scope, call)

	n := *call
	n.Args = make([]ast.Expression, len(call.Args))
	for i, a := range call.Args {
		n.Args[i] = b.inlineInExpr(scope, fc, pre, a, depth)
	}
	if call.Named != nil {
		n.Named = make([]ast.NamedArg, len(call.Named))
		for i, na := range call.Named {
			n.Named[i] = ast.NamedArg{Name: na.Name, Value: b.inlineInExpr(scope, fc, pre, na.Value, depth)}
		}
	}

	if !inlinable {
		return &n
	}

	if depth >= maxInlineDepth {
		b.errorAt(call.Pos_, logging.CatFlatten, "function inlining exceeded recursion depth at %q", call.Function.String())
		return &n
	}

	return b.inlineCall(scope, fc, pre, &n, fn, depth)
}

// inlinableFunction resolves call's target and reports whether it is a local
// function class with an algorithm body and no external clause.
func (b *Builder) inlinableFunction(scope *mods.Scope, call *ast.CallExpr) (*ast.ClassDefinition, bool) {
	if len(call.Function.Parts) == 0 || call.ForIterators != nil {
		return nil, false
	}

	r, ok := scope.ResolveRef(call.Function)
	if !ok || r.Class == nil || r.Class.Kind != ast.ClassFunction {
		return nil, false
	}
	if r.Class.External != nil || len(r.Class.Algorithms) == 0 {
		return nil, false
	}
	return r.Class, true
}

// inlineCall performs one expression-position inlining; the function must
// have exactly one output, which becomes the replacement expression. A
// multi-output function in expression position is only legal as a tuple
// equation's right-hand side (expandTupleEquation).
func (b *Builder) inlineCall(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, call *ast.CallExpr, fn *ast.ClassDefinition, depth int) ast.Expression {
	if n := outputCount(fn); n != 1 {
		b.errorAt(call.Pos_, logging.CatFlatten,
			"cannot inline call to %q in expression position: function has %d outputs", fn.Name, n)
		return call
	}

	outNames, ok := b.expandCall(scope, fc, pre, call, fn)
	if !ok {
		return call
	}

	return freshRef(outNames[0], call.Pos_)
}

// expandTupleEquation expands `(a, b) = f(x)` into one equation per output:
// the call's body is inlined once, then each non-blank tuple element is
// equated to the matching fresh output variable. A tuple-valued right-hand
// side `(a, b) = (e1, e2)` splits element-wise. A call that cannot be
// inlined (external, or no local body) is diagnosed rather than guessed at.
func (b *Builder) expandTupleEquation(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, tup *ast.TupleExpr, rhs ast.Expression, depth int) []ast.Equation {
	if rtup, isTuple := rhs.(*ast.TupleExpr); isTuple {
		if len(rtup.Elements) != len(tup.Elements) {
			b.errorAt(tup.Pos_, logging.CatFlatten,
				"tuple equation has %d targets but %d right-hand values", len(tup.Elements), len(rtup.Elements))
			return nil
		}
		var eqs []ast.Equation
		for i, elem := range tup.Elements {
			if elem == nil {
				continue
			}
			eqs = append(eqs, &ast.SimpleEquation{
				LHS: elem,
				RHS: b.inlineInExpr(scope, fc, pre, rtup.Elements[i], depth),
			})
		}
		return eqs
	}

	call, ok := rhs.(*ast.CallExpr)
	if !ok {
		b.errorAt(tup.Pos_, logging.CatFlatten, "tuple equation right-hand side must be a function call or tuple")
		return nil
	}

	fn, inlinable := b.inlinableFunction(scope, call)
	if !inlinable {
		b.errorAt(call.Pos_, logging.CatFlatten,
			"cannot expand tuple equation: function %q has no local body to inline", call.Function.String())
		return nil
	}

	n := *call
	n.Args = b.inlineInExprList(scope, fc, pre, call.Args, depth)
	if call.Named != nil {
		n.Named = make([]ast.NamedArg, len(call.Named))
		for i, na := range call.Named {
			n.Named[i] = ast.NamedArg{Name: na.Name, Value: b.inlineInExpr(scope, fc, pre, na.Value, depth)}
		}
	}

	outNames, ok := b.expandCall(scope, fc, pre, &n, fn)
	if !ok {
		return nil
	}
	if len(outNames) != len(tup.Elements) {
		b.errorAt(tup.Pos_, logging.CatFlatten,
			"tuple equation has %d targets but %q has %d outputs", len(tup.Elements), fn.Name, len(outNames))
		return nil
	}

	var eqs []ast.Equation
	for i, elem := range tup.Elements {
		if elem == nil {
			// a blank slot discards that output
			continue
		}
		eqs = append(eqs, &ast.SimpleEquation{
			LHS: elem,
			RHS: freshRef(outNames[i], tup.Pos_),
		})
	}
	return eqs
}

func outputCount(fn *ast.ClassDefinition) int {
	n := 0
	for _, c := range fn.Components {
		if c.Causality == ast.CausalityOutput {
			n++
		}
	}
	return n
}

func freshRef(name string, pos ast.Position) ast.Expression {
	return &ast.ComponentReference{
		ExprBase: ast.ExprBase{Pos_: pos},
		Parts:    []ast.ComponentRefPart{{Name: name}},
	}
}

// expandCall performs the body of one inlining: fresh temporaries for the
// function's locals, one binding equation per input, the algorithm lifted
// with every local reference renamed. It returns the fresh names of the
// function's outputs, in declaration order.
func (b *Builder) expandCall(scope *mods.Scope, fc *FlatClass, pre *[]ast.Equation, call *ast.CallExpr, fn *ast.ClassDefinition) ([]string, bool) {
	var inputs, outputs, locals []*ast.Component
	for _, c := range fn.Components {
		switch c.Causality {
		case ast.CausalityInput:
			inputs = append(inputs, c)
		case ast.CausalityOutput:
			outputs = append(outputs, c)
		default:
			locals = append(locals, c)
		}
	}

	args := make(map[string]ast.Expression)
	for i, a := range call.Args {
		if i >= len(inputs) {
			b.errorAt(call.Pos_, logging.CatFlatten, "too many arguments in call to %q", fn.Name)
			return nil, false
		}
		args[inputs[i].Name] = a
	}
	for _, na := range call.Named {
		args[na.Name] = na.Value
	}

	renames := make(map[string]string)
	addTemp := func(c *ast.Component) string {
		fresh := b.freshName(fn.Name + "_" + c.Name)
		renames[c.Name] = fresh
		fc.AddComponent(&FlatComponent{
			Name:        fresh,
			TypeName:    b.atomicTypeOf(scope, c),
			Dimensions:  c.Dimensions,
			Variability: ast.VarContinuous,
			Pos:         c.Pos,
		})
		return fresh
	}

	for _, in := range inputs {
		fresh := addTemp(in)
		bindExpr, bound := args[in.Name]
		if !bound {
			bindExpr = bindingOf(in)
		}
		if bindExpr == nil {
			b.errorAt(call.Pos_, logging.CatFlatten, "missing argument %q in call to %q", in.Name, fn.Name)
			continue
		}
		*pre = append(*pre, &ast.SimpleEquation{
			LHS: &ast.ComponentReference{Parts: []ast.ComponentRefPart{{Name: fresh}}},
			RHS: bindExpr,
		})
	}
	for _, lc := range locals {
		addTemp(lc)
	}

	outNames := make([]string, len(outputs))
	for i, o := range outputs {
		outNames[i] = addTemp(o)
	}

	rw := func(r ast.ComponentReference) ast.ComponentReference {
		if r.Global || len(r.Parts) == 0 {
			return r
		}
		fresh, ok := renames[r.Parts[0].Name]
		if !ok {
			return r
		}
		out := r
		out.Parts = append([]ast.ComponentRefPart(nil), r.Parts...)
		out.Parts[0].Name = fresh
		return out
	}

	for _, st := range fn.Algorithms {
		fc.Algorithms = append(fc.Algorithms, rewriteStatement(st, rw))
	}

	return outNames, true
}

// atomicTypeOf resolves a function local's declared type down to its builtin
// base name, defaulting to Real when the type cannot be resolved (the common
// case for numeric functions, and harmless for DAE classification since
// inlined temporaries are always algebraic).
func (b *Builder) atomicTypeOf(scope *mods.Scope, c *ast.Component) string {
	name := c.TypeName.String()
	if base, ok := builtinTypes[name]; ok {
		return base
	}
	if cd, ok := b.resolveClassRef(scope, c.TypeName); ok {
		if base, ok := b.resolveAtomicAlias(scope, cd); ok {
			return base
		}
	}
	return "Real"
}
