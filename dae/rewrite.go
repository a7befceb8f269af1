package dae

import "github.com/mhcho1994/rumoca/ast"

// This file implements the companion-variable rewrite: the single traversal that rewrites every
// der(v) into a reference to the companion der_v, and every pre(v) into the
// matching pre_v left-limit companion. A der() whose operand is anything but
// a bare identifier -- including der(der(v)) -- is a ClassifyError.

// walkExpr calls visit on expr and every sub-expression, pre-order.
func walkExpr(expr ast.Expression, visit func(ast.Expression)) {
	if expr == nil {
		return
	}
	visit(expr)

	switch e := expr.(type) {
	case ast.ComponentReference:
		walkSubscripts(e, visit)
	case *ast.ComponentReference:
		walkSubscripts(*e, visit)
	case *ast.UnaryExpr:
		walkExpr(e.Operand, visit)
	case *ast.BinaryExpr:
		walkExpr(e.Left, visit)
		walkExpr(e.Right, visit)
	case *ast.RangeExpr:
		walkExpr(e.Start, visit)
		walkExpr(e.Step, visit)
		walkExpr(e.Stop, visit)
	case *ast.IfExpr:
		for _, c := range e.Conditions {
			walkExpr(c, visit)
		}
		for _, br := range e.Branches {
			walkExpr(br, visit)
		}
		walkExpr(e.ElseBranch, visit)
	case *ast.CallExpr:
		for _, a := range e.Args {
			walkExpr(a, visit)
		}
		for _, na := range e.Named {
			walkExpr(na.Value, visit)
		}
	case *ast.ArrayExpr:
		for _, el := range e.Elements {
			walkExpr(el, visit)
		}
	case *ast.MatrixExpr:
		for _, row := range e.Rows {
			for _, el := range row {
				walkExpr(el, visit)
			}
		}
	case *ast.TupleExpr:
		for _, el := range e.Elements {
			walkExpr(el, visit)
		}
	case *ast.DerExpr:
		walkExpr(e.Operand, visit)
	case *ast.PreExpr:
		walkExpr(e.Operand, visit)
	}
}

func walkSubscripts(cr ast.ComponentReference, visit func(ast.Expression)) {
	for _, part := range cr.Parts {
		for _, sub := range part.Subscripts {
			walkExpr(sub, visit)
		}
	}
}

func (b *builder) rewriteExpr(expr ast.Expression) ast.Expression {
	if expr == nil {
		return nil
	}

	switch e := expr.(type) {
	case *ast.DerExpr:
		name, ok := bareName(e.Operand)
		if !ok {
			if _, nested := e.Operand.(*ast.DerExpr); nested {
				b.errorAt(e.Position(), "nested der(der(...)) is not supported; introduce an intermediate state variable")
			} else {
				b.errorAt(e.Position(), "der() argument must be a simple variable reference")
			}
			return e
		}
		return &ast.ComponentReference{
			ExprBase: ast.ExprBase{Pos_: e.Position()},
			Parts:    []ast.ComponentRefPart{{Name: derName(name)}},
		}

	case *ast.PreExpr:
		name, ok := bareName(e.Operand)
		if !ok {
			b.errorAt(e.Position(), "pre() argument must be a simple variable reference")
			return e
		}
		switch b.class[name] {
		case "x", "z", "m":
			return &ast.ComponentReference{
				ExprBase: ast.ExprBase{Pos_: e.Position()},
				Parts:    []ast.ComponentRefPart{{Name: preName(name)}},
			}
		default:
			b.errorAt(e.Position(), "pre() applied to %q, which is neither a state nor a discrete variable", name)
			return e
		}

	case *ast.UnaryExpr:
		n := *e
		n.Operand = b.rewriteExpr(e.Operand)
		return &n

	case *ast.BinaryExpr:
		n := *e
		n.Left = b.rewriteExpr(e.Left)
		n.Right = b.rewriteExpr(e.Right)
		return &n

	case *ast.RangeExpr:
		n := *e
		n.Start = b.rewriteExpr(e.Start)
		n.Step = b.rewriteExpr(e.Step)
		n.Stop = b.rewriteExpr(e.Stop)
		return &n

	case *ast.IfExpr:
		n := *e
		n.Conditions = b.rewriteExprList(e.Conditions)
		n.Branches = b.rewriteExprList(e.Branches)
		n.ElseBranch = b.rewriteExpr(e.ElseBranch)
		return &n

	case *ast.CallExpr:
		n := *e
		n.Args = b.rewriteExprList(e.Args)
		if e.Named != nil {
			n.Named = make([]ast.NamedArg, len(e.Named))
			for i, na := range e.Named {
				n.Named[i] = ast.NamedArg{Name: na.Name, Value: b.rewriteExpr(na.Value)}
			}
		}
		return &n

	case *ast.ArrayExpr:
		n := *e
		n.Elements = b.rewriteExprList(e.Elements)
		return &n

	case *ast.MatrixExpr:
		n := *e
		n.Rows = make([][]ast.Expression, len(e.Rows))
		for i, row := range e.Rows {
			n.Rows[i] = b.rewriteExprList(row)
		}
		return &n

	case *ast.TupleExpr:
		n := *e
		n.Elements = b.rewriteExprList(e.Elements)
		return &n

	default:
		return expr
	}
}

func (b *builder) rewriteExprList(exprs []ast.Expression) []ast.Expression {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = b.rewriteExpr(e)
	}
	return out
}

func (b *builder) rewriteEquation(eq ast.Equation) ast.Equation {
	switch e := eq.(type) {
	case *ast.SimpleEquation:
		n := *e
		n.LHS = b.rewriteExpr(e.LHS)
		n.RHS = b.rewriteExpr(e.RHS)
		return &n

	case *ast.IfEquation:
		n := *e
		n.Branches = make([]ast.IfEquationBranch, len(e.Branches))
		for i, br := range e.Branches {
			n.Branches[i] = ast.IfEquationBranch{Condition: b.rewriteExpr(br.Condition), Equations: b.rewriteEquationList(br.Equations)}
		}
		n.Else = b.rewriteEquationList(e.Else)
		return &n

	case *ast.ForEquation:
		n := *e
		n.Body = b.rewriteEquationList(e.Body)
		return &n

	case *ast.WhenEquation:
		n := *e
		n.Branches = make([]ast.WhenEquationBranch, len(e.Branches))
		for i, br := range e.Branches {
			n.Branches[i] = ast.WhenEquationBranch{Condition: b.rewriteExpr(br.Condition), Equations: b.rewriteEquationList(br.Equations)}
		}
		return &n

	case *ast.ReinitEquation:
		n := *e
		n.Value = b.rewriteExpr(e.Value)
		return &n

	case *ast.AssertEquation:
		n := *e
		n.Condition = b.rewriteExpr(e.Condition)
		n.Message = b.rewriteExpr(e.Message)
		n.Level = b.rewriteExpr(e.Level)
		return &n

	default:
		return eq
	}
}

func (b *builder) rewriteEquationList(eqs []ast.Equation) []ast.Equation {
	if eqs == nil {
		return nil
	}
	out := make([]ast.Equation, len(eqs))
	for i, e := range eqs {
		out[i] = b.rewriteEquation(e)
	}
	return out
}

func (b *builder) rewriteStatement(st ast.Statement) ast.Statement {
	switch s := st.(type) {
	case *ast.AssignStatement:
		n := *s
		n.LHS = b.rewriteExprList(s.LHS)
		n.RHS = b.rewriteExpr(s.RHS)
		return &n

	case *ast.IfStatement:
		n := *s
		n.Branches = make([]ast.IfStatementBranch, len(s.Branches))
		for i, br := range s.Branches {
			n.Branches[i] = ast.IfStatementBranch{Condition: b.rewriteExpr(br.Condition), Body: b.rewriteStatementList(br.Body)}
		}
		n.Else = b.rewriteStatementList(s.Else)
		return &n

	case *ast.ForStatement:
		n := *s
		n.Body = b.rewriteStatementList(s.Body)
		return &n

	case *ast.WhileStatement:
		n := *s
		n.Condition = b.rewriteExpr(s.Condition)
		n.Body = b.rewriteStatementList(s.Body)
		return &n

	case *ast.WhenStatement:
		n := *s
		n.Branches = make([]ast.WhenStatementBranch, len(s.Branches))
		for i, br := range s.Branches {
			n.Branches[i] = ast.WhenStatementBranch{Condition: b.rewriteExpr(br.Condition), Body: b.rewriteStatementList(br.Body)}
		}
		return &n

	case *ast.AssertStatement:
		n := *s
		n.Condition = b.rewriteExpr(s.Condition)
		n.Message = b.rewriteExpr(s.Message)
		n.Level = b.rewriteExpr(s.Level)
		return &n

	default:
		return st
	}
}

func (b *builder) rewriteStatementList(stmts []ast.Statement) []ast.Statement {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = b.rewriteStatement(s)
	}
	return out
}
