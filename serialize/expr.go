package serialize

import (
	"github.com/mhcho1994/rumoca/ast"
)

// Expr is one node of the tagged expression tree the schema emits for every
// equation, condition, binding, and dimension. Numeric/boolean leaf
// payloads are pointers so a zero value survives the omit-absent-fields
// rule: a nil pointer is an absent field, a pointer to 0 is the number 0.
type Expr struct {
	Kind string   `json:"kind"`
	Int  *int64   `json:"int,omitempty"`
	Real *float64 `json:"real,omitempty"`
	Bool *bool    `json:"bool,omitempty"`
	Str  *string  `json:"str,omitempty"`
	Name string   `json:"name,omitempty"` // reference path, operator, or call target
	Args []*Expr  `json:"args,omitempty"`
}

// Equation is one node of the tagged equation tree.
type Equation struct {
	Kind      string            `json:"kind"`
	Guard     string            `json:"guard,omitempty"`
	LHS       *Expr             `json:"lhs,omitempty"`
	RHS       *Expr             `json:"rhs,omitempty"`
	Branches  []*EquationBranch `json:"branches,omitempty"`
	Else      []*Equation       `json:"else,omitempty"`
	Iterators []*Iterator       `json:"iterators,omitempty"`
	Body      []*Equation       `json:"body,omitempty"`
	Condition *Expr             `json:"condition,omitempty"`
	Message   *Expr             `json:"message,omitempty"`
}

// EquationBranch is one arm of a serialized if/when equation.
type EquationBranch struct {
	Condition *Expr       `json:"condition"`
	Equations []*Equation `json:"equations"`
}

// Iterator is one serialized for-iterator.
type Iterator struct {
	Name  string `json:"name"`
	Range *Expr  `json:"range,omitempty"`
}

// Statement is one node of the tagged algorithm-statement tree.
type Statement struct {
	Kind      string             `json:"kind"`
	Targets   []*Expr            `json:"targets,omitempty"`
	RHS       *Expr              `json:"rhs,omitempty"`
	Branches  []*StatementBranch `json:"branches,omitempty"`
	Else      []*Statement       `json:"else,omitempty"`
	Iterators []*Iterator        `json:"iterators,omitempty"`
	Body      []*Statement       `json:"body,omitempty"`
	Condition *Expr              `json:"condition,omitempty"`
	Message   *Expr              `json:"message,omitempty"`
}

// StatementBranch is one arm of a serialized if/when statement.
type StatementBranch struct {
	Condition *Expr        `json:"condition"`
	Body      []*Statement `json:"body"`
}

func exprTree(expr ast.Expression) *Expr {
	if expr == nil {
		return nil
	}

	switch e := expr.(type) {
	case *ast.IntLit:
		v := e.Value
		return &Expr{Kind: "integer", Int: &v}

	case *ast.FloatLit:
		v := e.Value
		return &Expr{Kind: "real", Real: &v}

	case *ast.BoolLit:
		v := e.Value
		return &Expr{Kind: "boolean", Bool: &v}

	case *ast.StringLit:
		v := e.Value
		return &Expr{Kind: "string", Str: &v}

	case ast.ComponentReference:
		return refTree(e)
	case *ast.ComponentReference:
		return refTree(*e)

	case *ast.UnaryExpr:
		return &Expr{Kind: "unary", Name: ast.TokenName(e.Op), Args: exprTrees(e.Operand)}

	case *ast.BinaryExpr:
		return &Expr{Kind: "binary", Name: ast.TokenName(e.Op), Args: exprTrees(e.Left, e.Right)}

	case *ast.RangeExpr:
		if e.Step != nil {
			return &Expr{Kind: "range", Args: exprTrees(e.Start, e.Step, e.Stop)}
		}
		return &Expr{Kind: "range", Args: exprTrees(e.Start, e.Stop)}

	case *ast.IfExpr:
		// args interleave condition/value pairs, else-branch last.
		var args []*Expr
		for i := range e.Conditions {
			args = append(args, exprTree(e.Conditions[i]), exprTree(e.Branches[i]))
		}
		args = append(args, exprTree(e.ElseBranch))
		return &Expr{Kind: "if", Args: args}

	case *ast.CallExpr:
		call := &Expr{Kind: "call", Name: refPath(e.Function)}
		for _, a := range e.Args {
			call.Args = append(call.Args, exprTree(a))
		}
		for _, na := range e.Named {
			call.Args = append(call.Args, &Expr{Kind: "named", Name: na.Name, Args: exprTrees(na.Value)})
		}
		return call

	case *ast.ArrayExpr:
		arr := &Expr{Kind: "array"}
		for _, el := range e.Elements {
			arr.Args = append(arr.Args, exprTree(el))
		}
		return arr

	case *ast.MatrixExpr:
		m := &Expr{Kind: "matrix"}
		for _, row := range e.Rows {
			r := &Expr{Kind: "row"}
			for _, el := range row {
				r.Args = append(r.Args, exprTree(el))
			}
			m.Args = append(m.Args, r)
		}
		return m

	case *ast.TupleExpr:
		// tuple equations expand away during function inlining (a tuple whose
		// call cannot be inlined is a flatten error); a tuple reaches
		// serialization only outside an equation's left-hand side
		tup := &Expr{Kind: "tuple"}
		for _, el := range e.Elements {
			if el == nil {
				tup.Args = append(tup.Args, &Expr{Kind: "blank"})
			} else {
				tup.Args = append(tup.Args, exprTree(el))
			}
		}
		return tup

	case *ast.EndExpr:
		return &Expr{Kind: "end"}

	case *ast.DerExpr:
		// der() survives only in contexts the DAE builder does not rewrite;
		// it never survives inside fx.
		return &Expr{Kind: "der", Args: exprTrees(e.Operand)}

	case *ast.PreExpr:
		return &Expr{Kind: "pre", Args: exprTrees(e.Operand)}

	default:
		return &Expr{Kind: "unknown"}
	}
}

func refTree(cr ast.ComponentReference) *Expr {
	ref := &Expr{Kind: "ref", Name: refPath(cr)}
	for _, part := range cr.Parts {
		for _, sub := range part.Subscripts {
			ref.Args = append(ref.Args, exprTree(sub))
		}
	}
	return ref
}

func exprTrees(exprs ...ast.Expression) []*Expr {
	out := make([]*Expr, len(exprs))
	for i, e := range exprs {
		out[i] = exprTree(e)
	}
	return out
}

func equationTree(eq ast.Equation, guard string) *Equation {
	out := equationNode(eq)
	out.Guard = guard
	return out
}

func equationNode(eq ast.Equation) *Equation {
	switch e := eq.(type) {
	case *ast.SimpleEquation:
		return &Equation{Kind: "equal", LHS: exprTree(e.LHS), RHS: exprTree(e.RHS)}

	case *ast.IfEquation:
		n := &Equation{Kind: "if"}
		for _, br := range e.Branches {
			n.Branches = append(n.Branches, &EquationBranch{
				Condition: exprTree(br.Condition),
				Equations: equationNodes(br.Equations),
			})
		}
		n.Else = equationNodes(e.Else)
		return n

	case *ast.ForEquation:
		n := &Equation{Kind: "for", Body: equationNodes(e.Body)}
		for _, it := range e.Iterators {
			n.Iterators = append(n.Iterators, &Iterator{Name: it.Name, Range: exprTree(it.Range)})
		}
		return n

	case *ast.WhenEquation:
		n := &Equation{Kind: "when"}
		for _, br := range e.Branches {
			n.Branches = append(n.Branches, &EquationBranch{
				Condition: exprTree(br.Condition),
				Equations: equationNodes(br.Equations),
			})
		}
		return n

	case *ast.AssertEquation:
		return &Equation{Kind: "assert", Condition: exprTree(e.Condition), Message: exprTree(e.Message)}

	case *ast.ReinitEquation:
		return &Equation{Kind: "reinit", LHS: refTree(e.StateRef), RHS: exprTree(e.Value)}

	default:
		return &Equation{Kind: "unknown"}
	}
}

func equationNodes(eqs []ast.Equation) []*Equation {
	if eqs == nil {
		return nil
	}
	out := make([]*Equation, len(eqs))
	for i, e := range eqs {
		out[i] = equationNode(e)
	}
	return out
}

func statementTree(st ast.Statement) *Statement {
	switch s := st.(type) {
	case *ast.AssignStatement:
		n := &Statement{Kind: "assign", RHS: exprTree(s.RHS)}
		for _, lhs := range s.LHS {
			n.Targets = append(n.Targets, exprTree(lhs))
		}
		return n

	case *ast.IfStatement:
		n := &Statement{Kind: "if"}
		for _, br := range s.Branches {
			n.Branches = append(n.Branches, &StatementBranch{Condition: exprTree(br.Condition), Body: statementTrees(br.Body)})
		}
		n.Else = statementTrees(s.Else)
		return n

	case *ast.ForStatement:
		n := &Statement{Kind: "for", Body: statementTrees(s.Body)}
		for _, it := range s.Iterators {
			n.Iterators = append(n.Iterators, &Iterator{Name: it.Name, Range: exprTree(it.Range)})
		}
		return n

	case *ast.WhileStatement:
		return &Statement{Kind: "while", Condition: exprTree(s.Condition), Body: statementTrees(s.Body)}

	case *ast.WhenStatement:
		n := &Statement{Kind: "when"}
		for _, br := range s.Branches {
			n.Branches = append(n.Branches, &StatementBranch{Condition: exprTree(br.Condition), Body: statementTrees(br.Body)})
		}
		return n

	case *ast.BreakStatement:
		return &Statement{Kind: "break"}

	case *ast.ReturnStatement:
		return &Statement{Kind: "return"}

	case *ast.AssertStatement:
		return &Statement{Kind: "assert", Condition: exprTree(s.Condition), Message: exprTree(s.Message)}

	default:
		return &Statement{Kind: "unknown"}
	}
}

func statementTrees(stmts []ast.Statement) []*Statement {
	if stmts == nil {
		return nil
	}
	out := make([]*Statement, len(stmts))
	for i, s := range stmts {
		out[i] = statementTree(s)
	}
	return out
}
