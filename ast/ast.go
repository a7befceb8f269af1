package ast

// This file defines the top-level structural nodes of the Modelica AST:
// stored definitions, class definitions, extends clauses, imports, and
// component declarations. Expression and equation/statement nodes live in
// expr.go and equation.go respectively.

// Variability classifies how often a component's value may change.
type Variability int

const (
	VarContinuous Variability = iota
	VarDiscrete
	VarParameter
	VarConstant
)

// Causality classifies a component's input/output role.
type Causality int

const (
	CausalityNone Causality = iota
	CausalityInput
	CausalityOutput
)

// ConnectorKind classifies a connector component's physical role.
type ConnectorKind int

const (
	ConnectorNone ConnectorKind = iota
	ConnectorFlow
	ConnectorStream
)

// ClassKind distinguishes the restricted class forms Modelica defines.
type ClassKind int

const (
	ClassModel ClassKind = iota
	ClassBlock
	ClassConnector
	ClassRecord
	ClassType
	ClassPackage
	ClassFunction
	ClassOperator
	ClassGeneric // plain "class"
)

var classKindNames = map[ClassKind]string{
	ClassModel:     "model",
	ClassBlock:     "block",
	ClassConnector: "connector",
	ClassRecord:    "record",
	ClassType:      "type",
	ClassPackage:   "package",
	ClassFunction:  "function",
	ClassOperator:  "operator",
	ClassGeneric:   "class",
}

func (k ClassKind) String() string {
	return classKindNames[k]
}

// StoredDefinition is the root of a parsed source file: an optional
// within-clause, and one or more class definitions.
type StoredDefinition struct {
	Within    *WithinClause
	ClassDefs []*ClassDefinition

	// FilePath is the absolute path of the originating source file.
	FilePath string
}

// WithinClause names the package a source file declares itself to belong to.
type WithinClause struct {
	Name ComponentReference
	Pos  Position
}

// Position records the source span a node occupies, for diagnostics.
type Position struct {
	StartLn, StartCol int
	EndLn, EndCol     int
}

// ClassDefinition is a single class/model/block/.../operator declaration,
// possibly nested inside another one via ClassDefs.
type ClassDefinition struct {
	Name         string
	Kind         ClassKind
	Partial      bool
	Encapsulated bool
	Final        bool
	Description  string

	Extends    []*ExtendClause
	Imports    []ImportClause

	// Components holds declared components in source order; ComponentTable
	// indexes the same slice by name for O(1) lookup during flattening's
	// name-resolution cascade. The map-alongside-slice pair keeps iteration
	// order deterministic where a single unordered map would not.
	Components    []*Component
	ComponentTable map[string]*Component

	// ClassDefs holds classes declared locally within this class (a common
	// Modelica idiom for helper "type"/"record" definitions and replaceable
	// redeclarations); ClassTable indexes it by name, same pattern as
	// ComponentTable.
	ClassDefs []*ClassDefinition
	ClassTable map[string]*ClassDefinition

	Equations       []Equation // the "equation" section
	InitialEqs      []Equation // the "initial equation" section
	Algorithms      []Statement
	InitialAlgs     []Statement

	// Functions declared as external.
	External *ExternalClause

	Annotations map[string]Expression

	Pos Position
}

// AddComponent appends c to Components and indexes it in ComponentTable,
// keeping both in sync.
func (cd *ClassDefinition) AddComponent(c *Component) {
	if cd.ComponentTable == nil {
		cd.ComponentTable = make(map[string]*Component)
	}
	cd.Components = append(cd.Components, c)
	cd.ComponentTable[c.Name] = c
}

// AddClassDef appends nested to ClassDefs and indexes it in ClassTable.
func (cd *ClassDefinition) AddClassDef(nested *ClassDefinition) {
	if cd.ClassTable == nil {
		cd.ClassTable = make(map[string]*ClassDefinition)
	}
	cd.ClassDefs = append(cd.ClassDefs, nested)
	cd.ClassTable[nested.Name] = nested
}

// ExternalClause records an `external "C";`-style function body, kept opaque.
type ExternalClause struct {
	Language  string
	CallExpr  Expression // nil if no explicit call signature was given
	Pos       Position
}

// ExtendClause is a single `extends Base(modifiers);` declaration.
type ExtendClause struct {
	BaseClass ComponentReference
	Modifiers []Modifier
	Pos       Position
}

// Modifier is a single `name = value` or `name(nested...)` modification
// applied while instantiating a base class or component.
type Modifier struct {
	Name   string
	Value  Expression  // nil if this modifier only carries nested modifiers
	Nested []Modifier  // nested modifiers, e.g. `Resistor(R(start=1))`
	Each   bool
	Final  bool

	// Redeclare is non-nil for a `redeclare Type name(mods)` modification,
	// which substitutes a replaceable element's type.
	Redeclare *Redeclaration

	Pos Position
}

// Redeclaration carries the replacement type and modifiers of a redeclare
// modification.
type Redeclaration struct {
	TypeName  ComponentReference
	Modifiers []Modifier
}

// ImportClause is the common interface for the four import forms.
type ImportClause interface {
	importNode()
	Position() Position
}

type importBase struct {
	Pos_ Position
}

func (importBase) importNode() {}

func (b importBase) Position() Position { return b.Pos_ }

// QualifiedImport is `import A.B.C;`.
type QualifiedImport struct {
	importBase
	Path ComponentReference
}

// RenamedImport is `import X = A.B.C;`.
type RenamedImport struct {
	importBase
	Alias string
	Path  ComponentReference
}

// UnqualifiedImport is `import A.B.*;`, bringing every public member of the
// referenced package into unqualified scope.
type UnqualifiedImport struct {
	importBase
	Path ComponentReference
}

// SelectiveImport is `import A.B.{C, D};`, bringing only the listed names
// into unqualified scope.
type SelectiveImport struct {
	importBase
	Path    ComponentReference
	Members []string
}

// Dimension is a single array dimension: either a constant-folded integer, a
// `:` (to be inferred from a binding), or a general expression evaluated at
// flatten time.
type Dimension struct {
	Colon bool
	Expr  Expression // nil when Colon is true
	Pos   Position
}

// Component is a single declared variable/parameter/sub-model:
//
//	input Real x[3](start = 0) "description";
type Component struct {
	Name        string
	TypeName    ComponentReference
	Dimensions  []Dimension
	Variability Variability
	Causality   Causality
	ConnectorK  ConnectorKind

	Inner bool
	Outer bool
	Final bool
	Replaceable bool

	Modifiers   []Modifier
	Condition   Expression // non-nil for `if` conditional components
	Description string
	Annotations map[string]Expression

	Pos Position
}
