// Package dae builds the flat DAE intermediate representation from a
// flattened class: it partitions the flat components into the DAE
// variable classes, rewrites der()/pre() occurrences to their
// companion-variable references, extracts event conditions from preserved
// if- and when-equations, and runs the equation-balance check.
package dae

import "github.com/mhcho1994/rumoca/ast"

// TimeName is the distinguished independent variable.
const TimeName = "time"

// Variable is one scalar (or array) DAE variable, carried with the
// declaration attributes the serializer emits.
type Variable struct {
	Name        string
	Type        string
	Variability ast.Variability
	Causality   ast.Causality
	Start       ast.Expression // declaration binding / start value, nil if unbound
	Dimensions  []ast.Dimension
	Description string
}

// Condition is one entry of the `c` mapping: a Boolean indicator
// variable standing for a conditional expression, used for event generation.
// Trigger marks indicators born from when-equations, whose rising edge fires
// the discrete updates in fz/fm and the reinit actions in fr.
type Condition struct {
	Name    string
	Expr    ast.Expression
	Trigger bool
}

// GuardedEquation is a discrete-update equation active only at the instants
// its guard indicator fires.
type GuardedEquation struct {
	Guard string // indicator name in C
	Eq    ast.Equation
}

// ReinitAction is one `reinit(state, value)` fired when its guard indicator
// becomes true.
type ReinitAction struct {
	Guard string
	State string
	Value ast.Expression
}

// BalanceKind categorizes the outcome of the equation-balance check.
type BalanceKind int

const (
	Balanced BalanceKind = iota
	Overdetermined
	Underdetermined
	BalanceSkipped // partial/abstract classes are exempt
)

// BalanceResult is the outcome of the balance check: Delta is the scalar
// equation count minus the unknown count, positive when overdetermined.
type BalanceResult struct {
	Kind      BalanceKind
	Delta     int
	Equations int
	Unknowns  int
}

// Dae is the flat differential-algebraic system.
type Dae struct {
	Name string
	Time string

	P  []*Variable // parameters
	CP []*Variable // constants

	X    []*Variable // continuous states
	XDot []*Variable // state derivatives, |XDot| = |X|, order-matched
	Y    []*Variable // algebraic continuous
	U    []*Variable // root-level inputs
	Z    []*Variable // discrete continuous-time
	M    []*Variable // when-assigned discrete modes

	PreX []*Variable // left-limit companions of X
	PreZ []*Variable // left-limit companions of Z
	PreM []*Variable // left-limit companions of M

	C []*Condition

	FX []ast.Equation     // continuous residual equations
	FZ []GuardedEquation  // discrete updates
	FM []GuardedEquation  // mode updates
	FR []ReinitAction     // reinit actions

	InitialEquations []ast.Equation
	Algorithms       []ast.Statement

	Balance BalanceResult
}

// Lookup returns the class a scalar name belongs to, for callers that need
// to check the partition invariant. The second result is false for names
// not in any class (including Time and the companion sets).
func (d *Dae) Lookup(name string) (string, bool) {
	for class, vars := range map[string][]*Variable{
		"p": d.P, "cp": d.CP, "x": d.X, "y": d.Y, "u": d.U, "z": d.Z, "m": d.M,
	} {
		for _, v := range vars {
			if v.Name == name {
				return class, true
			}
		}
	}
	return "", false
}
