package ast

// Equation is the tagged-union interface for the equation-section forms:
// simple, if, for, when, connect, reinit, and assert equations.
type Equation interface {
	equationNode()
	Position() Position
}

type eqBase struct {
	Pos_ Position
}

func (eqBase) equationNode() {}

func (b eqBase) Position() Position { return b.Pos_ }

// SimpleEquation is `lhs = rhs;`.
type SimpleEquation struct {
	eqBase
	LHS, RHS Expression
}

// IfEquationBranch is one `[elseif] cond then eqs` arm.
type IfEquationBranch struct {
	Condition  Expression
	Equations  []Equation
}

// IfEquation is `if c1 then ... elseif c2 then ... else ... end if;`. The
// Else arm is nil when omitted.
type IfEquation struct {
	eqBase
	Branches []IfEquationBranch
	Else     []Equation
}

// ForEquation is `for i in range loop ... end for;`.
type ForEquation struct {
	eqBase
	Iterators []ForIterator
	Body      []Equation
}

// WhenEquationBranch is one `[elsewhen] cond then eqs` arm.
type WhenEquationBranch struct {
	Condition Expression
	Equations []Equation
}

// WhenEquation is `when c1 then ... elsewhen c2 then ... end when;`. Unlike
// if-equations, when-equations have no else arm: outside the
// triggering instant the left-hand sides simply hold their last value, which
// is exactly the semantics DAE construction's classify step relies on when
// it assigns the variables they define to the `z`/`m` discrete classes.
type WhenEquation struct {
	eqBase
	Branches []WhenEquationBranch
}

// ConnectEquation is `connect(a, b);`; expanded away during
// flattening's connection-set pass and never present in a FlatClass.
type ConnectEquation struct {
	eqBase
	A, B ComponentReference
}

// ReinitEquation is `reinit(x, expr);`, used only inside a when-equation
// branch to assign a new value to a continuous state at an event.
type ReinitEquation struct {
	eqBase
	StateRef ComponentReference
	Value    Expression
}

// AssertEquation is `assert(condition, message);`.
type AssertEquation struct {
	eqBase
	Condition Expression
	Message   Expression
	Level     Expression // nil unless an explicit AssertionLevel argument was given
}

// Statement is the tagged-union interface for algorithm-section statements:
// assignment, if, for, while, when, break, return, assert.
type Statement interface {
	statementNode()
	Position() Position
}

type stmtBase struct {
	Pos_ Position
}

func (stmtBase) statementNode() {}

func (b stmtBase) Position() Position { return b.Pos_ }

// AssignStatement is `lhs := rhs;`, or `(a, b) := f(x);` for a
// multiple-output function call (LHS holds every target in declaration
// order; a blank target is represented as a nil entry).
type AssignStatement struct {
	stmtBase
	LHS []Expression
	RHS Expression
}

// IfStatementBranch is one `[elseif] cond then stmts` arm.
type IfStatementBranch struct {
	Condition Expression
	Body      []Statement
}

// IfStatement is `if c1 then ... elseif c2 then ... else ... end if;`.
type IfStatement struct {
	stmtBase
	Branches []IfStatementBranch
	Else     []Statement
}

// ForStatement is `for i in range loop ... end for;`.
type ForStatement struct {
	stmtBase
	Iterators []ForIterator
	Body      []Statement
}

// WhileStatement is `while cond loop ... end while;`.
type WhileStatement struct {
	stmtBase
	Condition Expression
	Body      []Statement
}

// WhenStatementBranch is one `[elsewhen] cond then stmts` arm.
type WhenStatementBranch struct {
	Condition Expression
	Body      []Statement
}

// WhenStatement is the algorithm-section form of when; semantics mirror
// WhenEquation but the body is imperative.
type WhenStatement struct {
	stmtBase
	Branches []WhenStatementBranch
}

// BreakStatement is `break;`.
type BreakStatement struct {
	stmtBase
}

// ReturnStatement is `return;`.
type ReturnStatement struct {
	stmtBase
}

// AssertStatement is the algorithm-section form of an assert call.
type AssertStatement struct {
	stmtBase
	Condition Expression
	Message   Expression
	Level     Expression
}
