package dae

import (
	"strings"
	"testing"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/flatten"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
)

func buildSource(t *testing.T, src, root string) (*Dae, *logging.Logger, bool) {
	t.Helper()
	logger := logging.NewLogger(logging.LogLevelSilent)
	sd, ok := ast.ParseSource(strings.NewReader(src), "test.mo", logger)
	if !ok {
		t.Fatalf("parse failed with %d errors", logger.ErrorCount())
	}

	table := mods.NewClassTable()
	for _, cd := range sd.ClassDefs {
		table.Add(cd.Name, cd)
	}

	fc, ok := flatten.NewBuilder(table, logger).Flatten(root)
	if !ok {
		t.Fatalf("flatten failed with %d errors", logger.ErrorCount())
	}

	d, ok := Build(fc, logger)
	return d, logger, ok
}

func mustBuild(t *testing.T, src, root string) *Dae {
	t.Helper()
	d, logger, ok := buildSource(t, src, root)
	if !ok {
		t.Fatalf("DAE build failed with %d errors", logger.ErrorCount())
	}
	return d
}

func varNames(vars []*Variable) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}

func assertNames(t *testing.T, label string, vars []*Variable, want ...string) {
	t.Helper()
	got := varNames(vars)
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: got %q, want %q", label, i, got[i], want[i])
		}
	}
}

// assertNoDer checks the derivative-closure property over an equation
// list: no der() node survives in fx.
func assertNoDer(t *testing.T, eqs []ast.Equation) {
	t.Helper()
	for _, eq := range eqs {
		if se, ok := eq.(*ast.SimpleEquation); ok {
			for _, expr := range []ast.Expression{se.LHS, se.RHS} {
				walkExpr(expr, func(e ast.Expression) {
					if _, isDer := e.(*ast.DerExpr); isDer {
						t.Error("der() node survived in fx")
					}
				})
			}
		}
	}
}

func TestBuildIntegrator(t *testing.T) {
	d := mustBuild(t, "model Integrator Real x; Real y; equation der(x) = 1.0; der(y) = x; end Integrator;", "Integrator")

	assertNames(t, "x", d.X, "x", "y")
	assertNames(t, "x_dot", d.XDot, "der_x", "der_y")

	if len(d.FX) != 2 {
		t.Fatalf("got %d equations", len(d.FX))
	}
	assertNoDer(t, d.FX)

	se := d.FX[0].(*ast.SimpleEquation)
	lhs := se.LHS.(*ast.ComponentReference)
	if lhs.String() != "der_x" {
		t.Errorf("fx[0] LHS: %q", lhs.String())
	}

	if d.Balance.Kind != Balanced {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildMotor(t *testing.T) {
	src := `
	model Motor
	  parameter Real tau = 1;
	  input Real omega_ref;
	  Real omega;
	equation
	  der(omega) = (1 / tau) * (omega_ref - omega);
	end Motor;`

	d := mustBuild(t, src, "Motor")

	assertNames(t, "p", d.P, "tau")
	assertNames(t, "u", d.U, "omega_ref")
	assertNames(t, "x", d.X, "omega")
	assertNames(t, "x_dot", d.XDot, "der_omega")
	assertNames(t, "y", d.Y)

	if len(d.FX) != 1 || d.Balance.Kind != Balanced {
		t.Errorf("fx %d, balance %+v", len(d.FX), d.Balance)
	}
}

func TestBuildHierarchical(t *testing.T) {
	src := `
	model Motor
	  parameter Real tau = 1;
	  input Real omega_ref;
	  Real omega;
	equation
	  der(omega) = (1 / tau) * (omega_ref - omega);
	end Motor;
	model Quadrotor
	  Motor m1;
	  Motor m2;
	equation
	  m1.omega_ref = time;
	  m2.omega_ref = time;
	end Quadrotor;`

	d := mustBuild(t, src, "Quadrotor")

	assertNames(t, "p", d.P, "m1_tau", "m2_tau")
	assertNames(t, "x", d.X, "m1_omega", "m2_omega")
	// the sub-instance inputs become algebraic at the composition root
	assertNames(t, "y", d.Y, "m1_omega_ref", "m2_omega_ref")
	assertNames(t, "u", d.U)

	if len(d.FX) != 4 || d.Balance.Kind != Balanced {
		t.Errorf("fx %d, balance %+v", len(d.FX), d.Balance)
	}
}

func TestBuildParametersOnly(t *testing.T) {
	d := mustBuild(t, "model P parameter Real a = 1; parameter Real b = 2; end P;", "P")

	if len(d.X) != 0 || len(d.Y) != 0 || len(d.U) != 0 {
		t.Error("parameter-only model has unknowns")
	}
	if d.Balance.Kind != Balanced {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildClassificationPartition(t *testing.T) {
	src := `
	model M
	  constant Real c = 1;
	  parameter Real p = 2;
	  input Real u;
	  output Real y;
	  discrete Real zd;
	  Real x;
	equation
	  der(x) = u;
	  y = x;
	  when x > 1 then zd = x; end when;
	end M;`

	d := mustBuild(t, src, "M")

	// every scalar name lands in exactly one class
	for _, name := range []string{"c", "p", "u", "y", "zd", "x"} {
		if _, ok := d.Lookup(name); !ok {
			t.Errorf("%q not classified", name)
		}
	}
	assertNames(t, "cp", d.CP, "c")
	assertNames(t, "z", d.Z, "zd")
	assertNames(t, "pre_z", d.PreZ, "pre_zd")
	assertNames(t, "pre_x", d.PreX, "pre_x")
}

func TestBuildModeVariable(t *testing.T) {
	src := `
	model M
	  discrete Integer k;
	  Real x;
	equation
	  der(x) = 1;
	  when x > 2 then k = pre(k) + 1; end when;
	end M;`

	d := mustBuild(t, src, "M")

	assertNames(t, "m", d.M, "k")
	assertNames(t, "z", d.Z)
	assertNames(t, "pre_m", d.PreM, "pre_k")

	if len(d.FM) != 1 {
		t.Fatalf("got %d mode equations", len(d.FM))
	}
	if len(d.C) != 1 || !d.C[0].Trigger {
		t.Fatalf("conditions: %+v", d.C)
	}
	if d.FM[0].Guard != d.C[0].Name {
		t.Errorf("guard %q does not match indicator %q", d.FM[0].Guard, d.C[0].Name)
	}

	// pre(k) was rewritten to the companion reference
	se := d.FM[0].Eq.(*ast.SimpleEquation)
	found := false
	walkExpr(se.RHS, func(e ast.Expression) {
		if r, ok := e.(*ast.ComponentReference); ok && r.String() == "pre_k" {
			found = true
		}
	})
	if !found {
		t.Error("pre(k) not rewritten to pre_k")
	}
}

func TestBuildDiscreteAssignedOutsideWhen(t *testing.T) {
	// a discrete Integer also assigned outside when stays in z
	src := `
	model M
	  discrete Integer k;
	  Real x;
	equation
	  der(x) = 1;
	  k = 3;
	end M;`

	d := mustBuild(t, src, "M")
	assertNames(t, "z", d.Z, "k")
	assertNames(t, "m", d.M)
}

func TestBuildReinit(t *testing.T) {
	src := `
	model Bouncing
	  Real h;
	  Real v;
	equation
	  der(h) = v;
	  der(v) = -9.81;
	  when h < 0 then reinit(v, -0.8 * pre(v)); end when;
	end Bouncing;`

	d := mustBuild(t, src, "Bouncing")

	if len(d.FR) != 1 {
		t.Fatalf("got %d reinit actions", len(d.FR))
	}
	ra := d.FR[0]
	if ra.State != "v" || ra.Guard == "" {
		t.Errorf("reinit action: %+v", ra)
	}
	if d.Balance.Kind != Balanced {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildPreservedIfEquation(t *testing.T) {
	src := `
	model M
	  Real x;
	  Real y;
	equation
	  der(x) = 1;
	  if x > 0 then y = 1; else y = 2; end if;
	end M;`

	d := mustBuild(t, src, "M")

	if len(d.C) != 1 || d.C[0].Trigger {
		t.Fatalf("conditions: %+v", d.C)
	}

	var ifEq *ast.IfEquation
	for _, eq := range d.FX {
		if ie, ok := eq.(*ast.IfEquation); ok {
			ifEq = ie
		}
	}
	if ifEq == nil {
		t.Fatal("if-equation not preserved in fx")
	}
	cond := ifEq.Branches[0].Condition.(*ast.ComponentReference)
	if cond.String() != d.C[0].Name {
		t.Errorf("condition rewritten to %q, indicator is %q", cond.String(), d.C[0].Name)
	}

	if d.Balance.Kind != Balanced {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildDerOfParameterRejected(t *testing.T) {
	_, logger, ok := buildSource(t, "model M parameter Real p = 1; equation der(p) = 0; end M;", "M")
	if ok {
		t.Error("der(parameter) accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestBuildNestedDerRejected(t *testing.T) {
	_, _, ok := buildSource(t, "model M Real x; equation der(der(x)) = 0; end M;", "M")
	if ok {
		t.Error("der(der(x)) accepted")
	}
}

func TestBuildDerOfExpressionRejected(t *testing.T) {
	_, _, ok := buildSource(t, "model M Real x; Real y; equation der(x + y) = 0; y = 1; end M;", "M")
	if ok {
		t.Error("der of a compound expression accepted")
	}
}

func TestBuildBalanceWarnings(t *testing.T) {
	// one unknown, no equations: underdetermined, but still emitted
	d, logger, ok := buildSource(t, "model U Real x; end U;", "U")
	if !ok {
		t.Fatal("warning treated as error")
	}
	if d.Balance.Kind != Underdetermined || d.Balance.Delta != -1 {
		t.Errorf("balance: %+v", d.Balance)
	}

	warned := false
	for _, m := range logger.Messages() {
		if !m.IsErr {
			warned = true
		}
	}
	if !warned {
		t.Error("no balance warning logged")
	}

	// two equations for one unknown: overdetermined
	d, _, ok = buildSource(t, "model O Real x; equation x = 1; x = 2; end O;", "O")
	if !ok || d.Balance.Kind != Overdetermined || d.Balance.Delta != 1 {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildPartialExempt(t *testing.T) {
	d := mustBuild(t, "partial model P Real x; end P;", "P")
	if d.Balance.Kind != BalanceSkipped {
		t.Errorf("partial class balance: %+v", d.Balance)
	}
}

func TestBuildArrayEquationCount(t *testing.T) {
	src := `
	model A
	  parameter Integer n = 3;
	  Real v[n];
	equation
	  v = {1, 2, 3};
	end A;`

	d := mustBuild(t, src, "A")
	if d.Balance.Equations != 3 {
		t.Errorf("array equation counted as %d scalars", d.Balance.Equations)
	}
}

func TestBuildForEquationCount(t *testing.T) {
	src := `
	model F
	  Real v[4];
	equation
	  for i in 1:4 loop v[i] = i; end for;
	end F;`

	d := mustBuild(t, src, "F")
	if d.Balance.Equations != 4 {
		t.Errorf("for-equation counted as %d scalars", d.Balance.Equations)
	}
}

func TestBuildAssertNotCounted(t *testing.T) {
	src := `
	model A
	  Real x;
	equation
	  x = 1;
	  assert(x > 0, "positive");
	end A;`

	d := mustBuild(t, src, "A")
	if d.Balance.Kind != Balanced {
		t.Errorf("balance: %+v", d.Balance)
	}
}

func TestBuildTimeStaysUnclassified(t *testing.T) {
	d := mustBuild(t, "model T Real x; equation der(x) = time; end T;", "T")
	if _, ok := d.Lookup("time"); ok {
		t.Error("time classified as a variable")
	}
	if d.Time != TimeName {
		t.Errorf("time name: %q", d.Time)
	}
}
