package flatten

import "github.com/mhcho1994/rumoca/ast"

// RefRewriter rewrites one component reference; used to fold a sub-instance's
// local names into their flat prefixed form and, later, to
// rewrite `der(x)` into `der_x` (dae package).
type RefRewriter func(ast.ComponentReference) ast.ComponentReference

// rewriteExpr deep-copies expr, applying rw to every ComponentReference node
// it contains. The AST is immutable once produced, so every node on
// the path to a reference is copied rather than mutated in place.
func rewriteExpr(expr ast.Expression, rw RefRewriter) ast.Expression {
	if expr == nil {
		return nil
	}

	switch e := expr.(type) {
	case ast.ComponentReference:
		return rewriteRefNode(e, rw)
	case *ast.ComponentReference:
		r := rewriteRefNode(*e, rw)
		return &r

	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StringLit, *ast.EndExpr:
		return expr

	case *ast.UnaryExpr:
		n := *e
		n.Operand = rewriteExpr(e.Operand, rw)
		return &n

	case *ast.BinaryExpr:
		n := *e
		n.Left = rewriteExpr(e.Left, rw)
		n.Right = rewriteExpr(e.Right, rw)
		return &n

	case *ast.RangeExpr:
		n := *e
		n.Start = rewriteExpr(e.Start, rw)
		n.Step = rewriteExpr(e.Step, rw)
		n.Stop = rewriteExpr(e.Stop, rw)
		return &n

	case *ast.IfExpr:
		n := *e
		n.Conditions = rewriteExprList(e.Conditions, rw)
		n.Branches = rewriteExprList(e.Branches, rw)
		n.ElseBranch = rewriteExpr(e.ElseBranch, rw)
		return &n

	case *ast.CallExpr:
		n := *e
		if len(e.Function.Parts) > 0 {
			n.Function = rewriteRefNode(e.Function, rw)
		}
		n.Args = rewriteExprList(e.Args, rw)
		if e.Named != nil {
			n.Named = make([]ast.NamedArg, len(e.Named))
			for i, na := range e.Named {
				n.Named[i] = ast.NamedArg{Name: na.Name, Value: rewriteExpr(na.Value, rw)}
			}
		}
		n.ForIterators = rewriteIterators(e.ForIterators, rw)
		return &n

	case *ast.ArrayExpr:
		n := *e
		n.Elements = rewriteExprList(e.Elements, rw)
		n.Iterators = rewriteIterators(e.Iterators, rw)
		return &n

	case *ast.MatrixExpr:
		n := *e
		n.Rows = make([][]ast.Expression, len(e.Rows))
		for i, row := range e.Rows {
			n.Rows[i] = rewriteExprList(row, rw)
		}
		return &n

	case *ast.TupleExpr:
		n := *e
		n.Elements = rewriteExprList(e.Elements, rw)
		return &n

	case *ast.DerExpr:
		n := *e
		n.Operand = rewriteExpr(e.Operand, rw)
		return &n

	case *ast.PreExpr:
		n := *e
		n.Operand = rewriteExpr(e.Operand, rw)
		return &n

	default:
		return expr
	}
}

func rewriteRefNode(cr ast.ComponentReference, rw RefRewriter) ast.ComponentReference {
	out := rw(cr)
	for i, part := range out.Parts {
		if len(part.Subscripts) > 0 {
			newSubs := make([]ast.Expression, len(part.Subscripts))
			for j, s := range part.Subscripts {
				newSubs[j] = rewriteExpr(s, rw)
			}
			out.Parts[i].Subscripts = newSubs
		}
	}
	return out
}

func rewriteExprList(exprs []ast.Expression, rw RefRewriter) []ast.Expression {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = rewriteExpr(e, rw)
	}
	return out
}

func rewriteIterators(iters []ast.ForIterator, rw RefRewriter) []ast.ForIterator {
	if iters == nil {
		return nil
	}
	out := make([]ast.ForIterator, len(iters))
	for i, it := range iters {
		out[i] = ast.ForIterator{Name: it.Name, Range: rewriteExpr(it.Range, rw)}
	}
	return out
}

func rewriteEquation(eq ast.Equation, rw RefRewriter) ast.Equation {
	switch e := eq.(type) {
	case *ast.SimpleEquation:
		n := *e
		n.LHS = rewriteExpr(e.LHS, rw)
		n.RHS = rewriteExpr(e.RHS, rw)
		return &n

	case *ast.IfEquation:
		n := *e
		n.Branches = make([]ast.IfEquationBranch, len(e.Branches))
		for i, br := range e.Branches {
			n.Branches[i] = ast.IfEquationBranch{Condition: rewriteExpr(br.Condition, rw), Equations: rewriteEquationList(br.Equations, rw)}
		}
		n.Else = rewriteEquationList(e.Else, rw)
		return &n

	case *ast.ForEquation:
		n := *e
		n.Iterators = rewriteIterators(e.Iterators, rw)
		n.Body = rewriteEquationList(e.Body, rw)
		return &n

	case *ast.WhenEquation:
		n := *e
		n.Branches = make([]ast.WhenEquationBranch, len(e.Branches))
		for i, br := range e.Branches {
			n.Branches[i] = ast.WhenEquationBranch{Condition: rewriteExpr(br.Condition, rw), Equations: rewriteEquationList(br.Equations, rw)}
		}
		return &n

	case *ast.ConnectEquation:
		n := *e
		n.A = rewriteRefNode(e.A, rw)
		n.B = rewriteRefNode(e.B, rw)
		return &n

	case *ast.ReinitEquation:
		n := *e
		n.StateRef = rewriteRefNode(e.StateRef, rw)
		n.Value = rewriteExpr(e.Value, rw)
		return &n

	case *ast.AssertEquation:
		n := *e
		n.Condition = rewriteExpr(e.Condition, rw)
		n.Message = rewriteExpr(e.Message, rw)
		n.Level = rewriteExpr(e.Level, rw)
		return &n

	default:
		return eq
	}
}

func rewriteEquationList(eqs []ast.Equation, rw RefRewriter) []ast.Equation {
	if eqs == nil {
		return nil
	}
	out := make([]ast.Equation, len(eqs))
	for i, e := range eqs {
		out[i] = rewriteEquation(e, rw)
	}
	return out
}

func rewriteStatement(st ast.Statement, rw RefRewriter) ast.Statement {
	switch s := st.(type) {
	case *ast.AssignStatement:
		n := *s
		n.LHS = rewriteExprList(s.LHS, rw)
		n.RHS = rewriteExpr(s.RHS, rw)
		return &n

	case *ast.IfStatement:
		n := *s
		n.Branches = make([]ast.IfStatementBranch, len(s.Branches))
		for i, br := range s.Branches {
			n.Branches[i] = ast.IfStatementBranch{Condition: rewriteExpr(br.Condition, rw), Body: rewriteStatementList(br.Body, rw)}
		}
		n.Else = rewriteStatementList(s.Else, rw)
		return &n

	case *ast.ForStatement:
		n := *s
		n.Iterators = rewriteIterators(s.Iterators, rw)
		n.Body = rewriteStatementList(s.Body, rw)
		return &n

	case *ast.WhileStatement:
		n := *s
		n.Condition = rewriteExpr(s.Condition, rw)
		n.Body = rewriteStatementList(s.Body, rw)
		return &n

	case *ast.WhenStatement:
		n := *s
		n.Branches = make([]ast.WhenStatementBranch, len(s.Branches))
		for i, br := range s.Branches {
			n.Branches[i] = ast.WhenStatementBranch{Condition: rewriteExpr(br.Condition, rw), Body: rewriteStatementList(br.Body, rw)}
		}
		return &n

	case *ast.AssertStatement:
		n := *s
		n.Condition = rewriteExpr(s.Condition, rw)
		n.Message = rewriteExpr(s.Message, rw)
		n.Level = rewriteExpr(s.Level, rw)
		return &n

	default:
		return st
	}
}

func rewriteStatementList(stmts []ast.Statement, rw RefRewriter) []ast.Statement {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = rewriteStatement(s, rw)
	}
	return out
}
