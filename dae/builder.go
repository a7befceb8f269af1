package dae

import (
	"fmt"
	"strconv"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/flatten"
	"github.com/mhcho1994/rumoca/logging"
)

// builder holds the per-request state of one DAE construction: the
// scan results that drive classification, the name partition, and the
// indicator counter for event conditions.
type builder struct {
	logger *logging.Logger
	lctx   *logging.LogContext
	fc     *flatten.FlatClass

	states        map[string]bool // v such that der(v) occurs somewhere
	whenAssigned  map[string]bool // assigned inside a when branch
	otherAssigned map[string]bool // assigned outside any when

	class map[string]string // flat name -> variable class

	condCounter int
}

// Build constructs the Dae for fc. It only runs once flattening has reported
// no errors; the ok result is false if any
// ClassifyError was logged during construction. Balance mismatches are
// warnings and never make ok false.
func Build(fc *flatten.FlatClass, logger *logging.Logger) (*Dae, bool) {
	b := &builder{
		logger:        logger,
		lctx:          &logging.LogContext{},
		fc:            fc,
		states:        make(map[string]bool),
		whenAssigned:  make(map[string]bool),
		otherAssigned: make(map[string]bool),
		class:         make(map[string]string),
	}

	before := logger.ErrorCount()

	b.scanEquationList(fc.Equations, false)
	b.scanStatementList(fc.Algorithms, false)

	d := &Dae{Name: fc.Name, Time: TimeName}

	b.classify(d)
	b.lowerEquations(d)

	d.InitialEquations = b.rewriteEquationList(fc.InitialEquations)
	d.Algorithms = b.rewriteStatementList(fc.Algorithms)

	b.checkBalance(d)

	return d, logger.ErrorCount() == before
}

func (b *builder) errorAt(pos ast.Position, format string, args ...interface{}) {
	b.logger.LogCompileError(b.lctx, fmt.Sprintf(format, args...), logging.CatClassify, &logging.TextPosition{
		StartLn: pos.StartLn, StartCol: pos.StartCol, EndLn: pos.EndLn, EndCol: pos.EndCol,
	})
}

// -----------------------------------------------------------------------------
// Scanning (classification inputs)

// scanEquationList records every der() operand and every assigned left-hand
// side, distinguishing assignments under a when branch from all others.
func (b *builder) scanEquationList(eqs []ast.Equation, inWhen bool) {
	for _, eq := range eqs {
		switch e := eq.(type) {
		case *ast.SimpleEquation:
			if name, ok := bareName(e.LHS); ok {
				if inWhen {
					b.whenAssigned[name] = true
				} else {
					b.otherAssigned[name] = true
				}
			}
			b.scanExpr(e.LHS)
			b.scanExpr(e.RHS)

		case *ast.IfEquation:
			for _, br := range e.Branches {
				b.scanExpr(br.Condition)
				b.scanEquationList(br.Equations, inWhen)
			}
			b.scanEquationList(e.Else, inWhen)

		case *ast.ForEquation:
			b.scanEquationList(e.Body, inWhen)

		case *ast.WhenEquation:
			for _, br := range e.Branches {
				b.scanExpr(br.Condition)
				b.scanEquationList(br.Equations, true)
			}

		case *ast.ReinitEquation:
			b.scanExpr(e.Value)

		case *ast.AssertEquation:
			b.scanExpr(e.Condition)
		}
	}
}

func (b *builder) scanStatementList(stmts []ast.Statement, inWhen bool) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *ast.AssignStatement:
			for _, lhs := range s.LHS {
				if name, ok := bareName(lhs); ok {
					if inWhen {
						b.whenAssigned[name] = true
					} else {
						b.otherAssigned[name] = true
					}
				}
			}
			b.scanExpr(s.RHS)

		case *ast.IfStatement:
			for _, br := range s.Branches {
				b.scanExpr(br.Condition)
				b.scanStatementList(br.Body, inWhen)
			}
			b.scanStatementList(s.Else, inWhen)

		case *ast.ForStatement:
			b.scanStatementList(s.Body, inWhen)

		case *ast.WhileStatement:
			b.scanExpr(s.Condition)
			b.scanStatementList(s.Body, inWhen)

		case *ast.WhenStatement:
			for _, br := range s.Branches {
				b.scanExpr(br.Condition)
				b.scanStatementList(br.Body, true)
			}
		}
	}
}

// scanExpr records der() operands that are bare identifiers; malformed der
// arguments are diagnosed later during the rewrite pass so each site is
// reported exactly once.
func (b *builder) scanExpr(expr ast.Expression) {
	walkExpr(expr, func(e ast.Expression) {
		if de, ok := e.(*ast.DerExpr); ok {
			if name, ok := bareName(de.Operand); ok {
				b.states[name] = true
			}
		}
	})
}

// bareName unwraps expr as a single-part, unsubscripted component reference.
func bareName(expr ast.Expression) (string, bool) {
	var cr ast.ComponentReference
	switch e := expr.(type) {
	case ast.ComponentReference:
		cr = e
	case *ast.ComponentReference:
		cr = *e
	default:
		return "", false
	}
	if cr.Global || len(cr.Parts) != 1 || len(cr.Parts[0].Subscripts) != 0 {
		return "", false
	}
	return cr.Parts[0].Name, true
}

// -----------------------------------------------------------------------------
// Classification

func (b *builder) classify(d *Dae) {
	for _, comp := range b.fc.Components {
		v := &Variable{
			Name:        comp.Name,
			Type:        comp.TypeName,
			Variability: comp.Variability,
			Causality:   comp.Causality,
			Start:       comp.Binding,
			Dimensions:  comp.Dimensions,
			Description: comp.Description,
		}

		switch {
		case comp.Variability == ast.VarConstant:
			if b.states[comp.Name] {
				b.errorAt(comp.Pos, "der() applied to constant %q", comp.Name)
			}
			d.CP = append(d.CP, v)
			b.class[comp.Name] = "cp"

		case comp.Variability == ast.VarParameter:
			if b.states[comp.Name] {
				b.errorAt(comp.Pos, "der() applied to parameter %q", comp.Name)
			}
			d.P = append(d.P, v)
			b.class[comp.Name] = "p"

		case comp.Causality == ast.CausalityInput:
			d.U = append(d.U, v)
			b.class[comp.Name] = "u"

		case comp.Variability == ast.VarDiscrete:
			if (comp.TypeName == "Boolean" || comp.TypeName == "Integer") &&
				b.whenAssigned[comp.Name] && !b.otherAssigned[comp.Name] {
				d.M = append(d.M, v)
				b.class[comp.Name] = "m"
			} else {
				d.Z = append(d.Z, v)
				b.class[comp.Name] = "z"
			}

		case b.states[comp.Name]:
			d.X = append(d.X, v)
			d.XDot = append(d.XDot, &Variable{
				Name:        derName(comp.Name),
				Type:        comp.TypeName,
				Variability: comp.Variability,
				Dimensions:  comp.Dimensions,
			})
			b.class[comp.Name] = "x"

		default:
			d.Y = append(d.Y, v)
			b.class[comp.Name] = "y"
		}
	}

	d.PreX = preCompanions(d.X)
	d.PreZ = preCompanions(d.Z)
	d.PreM = preCompanions(d.M)
}

func derName(name string) string {
	return "der_" + name
}

func preName(name string) string {
	return "pre_" + name
}

func preCompanions(vars []*Variable) []*Variable {
	out := make([]*Variable, len(vars))
	for i, v := range vars {
		out[i] = &Variable{
			Name:        preName(v.Name),
			Type:        v.Type,
			Variability: v.Variability,
			Dimensions:  v.Dimensions,
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Event-condition extraction

func (b *builder) newCondition(d *Dae, expr ast.Expression, trigger bool) string {
	b.condCounter++
	name := "c_" + strconv.Itoa(b.condCounter)
	d.C = append(d.C, &Condition{Name: name, Expr: expr, Trigger: trigger})
	return name
}

// lowerEquations splits the rewritten flat equation list into fx/fz/fm/fr:
// plain equations land in fx, preserved if-equations stay in fx with their
// conditions replaced by indicator references, and when-equations dissolve
// into guarded discrete updates and reinit actions.
func (b *builder) lowerEquations(d *Dae) {
	for _, eq := range b.fc.Equations {
		switch e := eq.(type) {
		case *ast.WhenEquation:
			b.lowerWhen(d, e)
		case *ast.IfEquation:
			d.FX = append(d.FX, b.lowerIf(d, e))
		default:
			d.FX = append(d.FX, b.rewriteEquation(eq))
		}
	}
}

// lowerIf allocates one indicator per branch condition and returns the
// if-equation with each condition replaced by its indicator reference, bodies
// (else included) rewritten: nested if-equations recurse, and a when nested
// under an if is rejected with a classification error.
func (b *builder) lowerIf(d *Dae, e *ast.IfEquation) ast.Equation {
	lowerBody := func(eqs []ast.Equation) []ast.Equation {
		body := make([]ast.Equation, 0, len(eqs))
		for _, beq := range eqs {
			switch nested := beq.(type) {
			case *ast.IfEquation:
				body = append(body, b.lowerIf(d, nested))
			case *ast.WhenEquation:
				b.errorAt(nested.Position(), "when-equation nested inside an if-equation is not supported")
			default:
				body = append(body, b.rewriteEquation(beq))
			}
		}
		return body
	}
	n := *e
	n.Branches = make([]ast.IfEquationBranch, len(e.Branches))
	for i, br := range e.Branches {
		ind := b.newCondition(d, b.rewriteExpr(br.Condition), false)
		n.Branches[i] = ast.IfEquationBranch{Condition: refExpr(ind), Equations: lowerBody(br.Equations)}
	}
	n.Else = lowerBody(e.Else)
	return &n
}

// lowerWhen allocates a trigger indicator per branch and distributes the
// branch body: reinit actions to fr, assignments to mode variables to fm,
// everything else to fz.
func (b *builder) lowerWhen(d *Dae, e *ast.WhenEquation) {
	for _, br := range e.Branches {
		ind := b.newCondition(d, b.rewriteExpr(br.Condition), true)

		for _, beq := range br.Equations {
			switch be := beq.(type) {
			case *ast.ReinitEquation:
				if name, ok := bareName(be.StateRef); ok {
					if b.class[name] != "x" {
						b.errorAt(be.Position(), "reinit target %q is not a continuous state", name)
						continue
					}
					d.FR = append(d.FR, ReinitAction{Guard: ind, State: name, Value: b.rewriteExpr(be.Value)})
				} else {
					b.errorAt(be.Position(), "reinit target must be a simple variable reference")
				}

			case *ast.SimpleEquation:
				ge := GuardedEquation{Guard: ind, Eq: b.rewriteEquation(beq)}
				if name, ok := bareName(be.LHS); ok && b.class[name] == "m" {
					d.FM = append(d.FM, ge)
				} else {
					d.FZ = append(d.FZ, ge)
				}

			default:
				d.FZ = append(d.FZ, GuardedEquation{Guard: ind, Eq: b.rewriteEquation(beq)})
			}
		}
	}
}

func refExpr(name string) ast.Expression {
	return &ast.ComponentReference{Parts: []ast.ComponentRefPart{{Name: name}}}
}
