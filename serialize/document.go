// Package serialize projects a built Dae into the stable, language-neutral
// document schema and exposes it to the two external back-end surfaces:
// JSON export and template rendering.
package serialize

import (
	"strings"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/dae"
	"github.com/mhcho1994/rumoca/logging"
)

// Component is the serialized form of one DAE variable: absent
// optional fields are omitted, never null.
type Component struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Variability string  `json:"variability,omitempty"`
	Causality   string  `json:"causality,omitempty"`
	Start       *Expr   `json:"start,omitempty"`
	Dims        []*Expr `json:"dims,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Condition is one event-condition entry of the `c` mapping.
type Condition struct {
	Name       string `json:"name"`
	Expression *Expr  `json:"expression"`
	Trigger    bool   `json:"trigger,omitempty"`
}

// Reinit is one serialized reinit action.
type Reinit struct {
	Guard string `json:"guard"`
	State string `json:"state"`
	Value *Expr  `json:"value"`
}

// Balance is the serialized balance-check outcome.
type Balance struct {
	Kind      string `json:"kind"`
	Delta     int    `json:"delta"`
	Equations int    `json:"equations"`
	Unknowns  int    `json:"unknowns"`
}

// Document is the stable schema consumed by the JSON
// export surface and by the template back-ends.
type Document struct {
	Name string `json:"name"`
	Time string `json:"time"`

	Parameters  []*Component `json:"parameters"`
	Constants   []*Component `json:"constants"`
	States      []*Component `json:"states"`
	Derivatives []*Component `json:"derivatives"`
	Algebraic   []*Component `json:"algebraic"`
	Inputs      []*Component `json:"inputs"`
	Discrete    []*Component `json:"discrete"`
	Modes       []*Component `json:"modes"`

	PreStates   []*Component `json:"pre_states"`
	PreDiscrete []*Component `json:"pre_discrete"`
	PreModes    []*Component `json:"pre_modes"`

	Conditions []*Condition `json:"conditions"`

	Equations         []*Equation `json:"equations"`
	DiscreteEquations []*Equation `json:"discrete_equations"`
	ModeEquations     []*Equation `json:"mode_equations"`
	ReinitActions     []*Reinit   `json:"reinit_actions"`

	InitialEquations []*Equation  `json:"initial_equations,omitempty"`
	Algorithms       []*Statement `json:"algorithms,omitempty"`

	Balance *Balance `json:"balance,omitempty"`

	// Diagnostics is the warning side-channel: balance and other
	// warnings ride along with the IR without blocking its emission.
	Diagnostics []logging.Diagnostic `json:"diagnostics,omitempty"`
}

var variabilityNames = map[ast.Variability]string{
	ast.VarContinuous: "continuous",
	ast.VarDiscrete:   "discrete",
	ast.VarParameter:  "parameter",
	ast.VarConstant:   "constant",
}

var causalityNames = map[ast.Causality]string{
	ast.CausalityNone:   "",
	ast.CausalityInput:  "input",
	ast.CausalityOutput: "output",
}

var balanceNames = map[dae.BalanceKind]string{
	dae.Balanced:        "balanced",
	dae.Overdetermined:  "overdetermined",
	dae.Underdetermined: "underdetermined",
	dae.BalanceSkipped:  "skipped",
}

// FromDae projects d into the stable document schema, attaching diags as the
// warning side-channel.
func FromDae(d *dae.Dae, diags []logging.Diagnostic) *Document {
	if len(diags) == 0 {
		diags = nil
	}

	doc := &Document{
		Name: d.Name,
		Time: d.Time,

		// every schema key is emitted even when empty; only the optional
		// extensions (initial_equations, algorithms, diagnostics) are omitted
		// when absent.
		Conditions:        []*Condition{},
		Equations:         []*Equation{},
		DiscreteEquations: []*Equation{},
		ModeEquations:     []*Equation{},
		ReinitActions:     []*Reinit{},

		Parameters:  components(d.P),
		Constants:   components(d.CP),
		States:      components(d.X),
		Derivatives: components(d.XDot),
		Algebraic:   components(d.Y),
		Inputs:      components(d.U),
		Discrete:    components(d.Z),
		Modes:       components(d.M),

		PreStates:   components(d.PreX),
		PreDiscrete: components(d.PreZ),
		PreModes:    components(d.PreM),

		Balance: &Balance{
			Kind:      balanceNames[d.Balance.Kind],
			Delta:     d.Balance.Delta,
			Equations: d.Balance.Equations,
			Unknowns:  d.Balance.Unknowns,
		},

		Diagnostics: diags,
	}

	for _, c := range d.C {
		doc.Conditions = append(doc.Conditions, &Condition{
			Name:       c.Name,
			Expression: exprTree(c.Expr),
			Trigger:    c.Trigger,
		})
	}

	for _, eq := range d.FX {
		doc.Equations = append(doc.Equations, equationTree(eq, ""))
	}
	for _, ge := range d.FZ {
		doc.DiscreteEquations = append(doc.DiscreteEquations, equationTree(ge.Eq, ge.Guard))
	}
	for _, ge := range d.FM {
		doc.ModeEquations = append(doc.ModeEquations, equationTree(ge.Eq, ge.Guard))
	}
	for _, ra := range d.FR {
		doc.ReinitActions = append(doc.ReinitActions, &Reinit{
			Guard: ra.Guard,
			State: ra.State,
			Value: exprTree(ra.Value),
		})
	}

	for _, eq := range d.InitialEquations {
		doc.InitialEquations = append(doc.InitialEquations, equationTree(eq, ""))
	}
	for _, st := range d.Algorithms {
		doc.Algorithms = append(doc.Algorithms, statementTree(st))
	}

	return doc
}

func components(vars []*dae.Variable) []*Component {
	out := make([]*Component, len(vars))
	for i, v := range vars {
		c := &Component{
			Name:        v.Name,
			Type:        v.Type,
			Variability: variabilityNames[v.Variability],
			Causality:   causalityNames[v.Causality],
			Start:       exprTree(v.Start),
			Description: v.Description,
		}
		for _, dim := range v.Dimensions {
			if dim.Colon {
				c.Dims = append(c.Dims, &Expr{Kind: "colon"})
			} else {
				c.Dims = append(c.Dims, exprTree(dim.Expr))
			}
		}
		out[i] = c
	}
	return out
}

// refPath joins a component reference's parts with dots; flattened names
// never contain dots, so this only matters for unresolved pass-through
// references such as external function targets.
func refPath(cr ast.ComponentReference) string {
	parts := make([]string, len(cr.Parts))
	for i, p := range cr.Parts {
		parts[i] = p.Name
	}
	s := strings.Join(parts, ".")
	if cr.Global {
		s = "." + s
	}
	return s
}
