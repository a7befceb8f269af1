package translate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mhcho1994/rumoca/dae"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/serialize"
)

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTranslation(t *testing.T, src, root string) (*Result, *logging.Logger, bool) {
	t.Helper()
	logger := logging.NewLogger(logging.LogLevelSilent)
	tr := New(logger)
	res, ok := tr.Translate(writeSource(t, "model.mo", src), root, nil)
	return res, logger, ok
}

func mustTranslate(t *testing.T, src, root string) *Result {
	t.Helper()
	res, logger, ok := runTranslation(t, src, root)
	if !ok {
		t.Fatalf("translation failed with %d errors", logger.ErrorCount())
	}
	return res
}

func names(vars []*dae.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

func expectNames(t *testing.T, label string, vars []*dae.Variable, want ...string) {
	t.Helper()
	got := names(vars)
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: got %q, want %q", label, i, got[i], want[i])
		}
	}
}

// A double integrator: both variables become states.
func TestScenarioIntegrator(t *testing.T) {
	res := mustTranslate(t,
		"model Integrator Real x; Real y; equation der(x)=1.0; der(y)=x; end Integrator;",
		"Integrator")

	d := res.Dae
	expectNames(t, "x", d.X, "x", "y")
	expectNames(t, "x_dot", d.XDot, "der_x", "der_y")
	if len(d.FX) != 2 || d.Balance.Delta != 0 {
		t.Errorf("fx %d, balance %+v", len(d.FX), d.Balance)
	}
}

// A first-order motor: parameter, input, and one state.
func TestScenarioMotor(t *testing.T) {
	res := mustTranslate(t, `
	model Motor parameter Real tau=1; input Real omega_ref; Real omega;
	equation der(omega) = (1/tau)*(omega_ref - omega); end Motor;`, "Motor")

	d := res.Dae
	expectNames(t, "p", d.P, "tau")
	expectNames(t, "u", d.U, "omega_ref")
	expectNames(t, "x", d.X, "omega")
	expectNames(t, "x_dot", d.XDot, "der_omega")
	if len(d.FX) != 1 || d.Balance.Delta != 0 {
		t.Errorf("fx %d, balance %+v", len(d.FX), d.Balance)
	}
}

// Hierarchical composition: sub-instance inputs stop being root inputs.
func TestScenarioQuadrotor(t *testing.T) {
	res := mustTranslate(t, `
	model Motor parameter Real tau=1; input Real omega_ref; Real omega;
	equation der(omega) = (1/tau)*(omega_ref - omega); end Motor;
	model Quadrotor Motor m1, m2; equation m1.omega_ref=time; m2.omega_ref=time; end Quadrotor;`,
		"Quadrotor")

	d := res.Dae
	expectNames(t, "p", d.P, "m1_tau", "m2_tau")
	expectNames(t, "y", d.Y, "m1_omega_ref", "m2_omega_ref")
	expectNames(t, "x", d.X, "m1_omega", "m2_omega")
	expectNames(t, "u", d.U)
	if len(d.FX) != 4 || d.Balance.Delta != 0 {
		t.Errorf("fx %d, balance %+v", len(d.FX), d.Balance)
	}
}

// A parameter-valued conditional reduces at flatten time.
func TestScenarioStaticConditional(t *testing.T) {
	res := mustTranslate(t, `
	model M parameter Integer n=0; input Real u; output Real y;
	equation if n==0 then y=u; else y=2*u; end if; end M;`, "M")

	d := res.Dae
	if len(d.FX) != 1 {
		t.Fatalf("fx: %d", len(d.FX))
	}
	expectNames(t, "y", d.Y, "y")
	expectNames(t, "u", d.U, "u")
	if d.Balance.Delta != 0 {
		t.Errorf("balance %+v", d.Balance)
	}
	if len(d.C) != 0 {
		t.Errorf("static conditional produced indicators: %+v", d.C)
	}
}

// An extends clause with a modifier rebinds the inherited parameter.
func TestScenarioExtendsModifier(t *testing.T) {
	res := mustTranslate(t, `
	model Base parameter Real k=1; Real v; equation der(v)=k*v; end Base;
	model Derived extends Base(k=2); end Derived;`, "Derived")

	d := res.Dae
	expectNames(t, "p", d.P, "k")
	expectNames(t, "x", d.X, "v")
	if len(d.FX) != 1 {
		t.Errorf("fx: %d", len(d.FX))
	}

	doc := res.Document
	if doc.Parameters[0].Start == nil || doc.Parameters[0].Start.Int == nil || *doc.Parameters[0].Start.Int != 2 {
		t.Errorf("k binding: %+v", doc.Parameters[0].Start)
	}
}

// connect() expands into flow-sum and potential-equality equations.
func TestScenarioConnect(t *testing.T) {
	res := mustTranslate(t, `
	connector Pin flow Real i; Real v; end Pin;
	model Circuit Pin a, b; equation connect(a, b); end Circuit;`, "Circuit")

	doc := res.Document
	if len(doc.Equations) != 2 {
		t.Fatalf("equations: %d", len(doc.Equations))
	}

	var sawSum, sawEquality bool
	for _, eq := range doc.Equations {
		if eq.Kind != "equal" {
			t.Fatalf("equation kind %q", eq.Kind)
		}
		if eq.LHS.Kind == "binary" && eq.LHS.Name == "+" {
			sawSum = true
			if eq.LHS.Args[0].Name != "a_i" || eq.LHS.Args[1].Name != "b_i" {
				t.Errorf("flow sum over %q and %q", eq.LHS.Args[0].Name, eq.LHS.Args[1].Name)
			}
		}
		if eq.LHS.Kind == "ref" && eq.LHS.Name == "a_v" {
			sawEquality = true
			if eq.RHS.Name != "b_v" {
				t.Errorf("potential equality against %q", eq.RHS.Name)
			}
		}
	}
	if !sawSum || !sawEquality {
		t.Errorf("connect expansion incomplete: sum %t, equality %t", sawSum, sawEquality)
	}
}

func TestTranslateDefaultRoot(t *testing.T) {
	// with no root class given, the last top-level class is translated
	res := mustTranslate(t, `
	model Helper Real h; equation h = 1; end Helper;
	model Main Real x; equation der(x) = 1; end Main;`, "")

	if res.Dae.Name != "Main" {
		t.Errorf("default root: %q", res.Dae.Name)
	}
}

func TestTranslateParseErrorFails(t *testing.T) {
	_, logger, ok := runTranslation(t, "model Broken Real = ; end Broken;", "Broken")
	if ok {
		t.Error("broken source translated successfully")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostics logged")
	}
}

func TestTranslateUnknownRootFails(t *testing.T) {
	_, _, ok := runTranslation(t, "model M end M;", "Other")
	if ok {
		t.Error("unknown root class translated successfully")
	}
}

func TestTranslateWarningsAttached(t *testing.T) {
	// an unbalanced model still emits a document with the warning attached
	res, _, ok := runTranslation(t, "model U Real x; end U;", "U")
	if !ok {
		t.Fatal("balance warning treated as fatal")
	}
	if len(res.Document.Diagnostics) == 0 {
		t.Error("balance warning not attached to the document")
	}
	if res.Document.Balance.Kind != "underdetermined" {
		t.Errorf("balance: %+v", res.Document.Balance)
	}
}

func TestTranslatePackageDirectory(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "Plant")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"package.mo": "package Plant end Plant;",
		"Tank.mo":    "model Tank Real level; equation der(level) = 1; end Tank;",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(pkg, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logger := logging.NewLogger(logging.LogLevelSilent)
	res, ok := New(logger).Translate(pkg, "Plant.Tank", nil)
	if !ok {
		t.Fatalf("translation failed with %d errors", logger.ErrorCount())
	}
	if res.Dae.Name != "Tank" {
		t.Errorf("root: %q", res.Dae.Name)
	}
}

func TestTranslateSearchRoots(t *testing.T) {
	// a library referenced by import is found through the search roots
	libDir := t.TempDir()
	lib := filepath.Join(libDir, "Lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "package.mo"), []byte("package Lib end Lib;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "Gain.mo"), []byte("model Gain parameter Real k = 2; end Gain;"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := writeSource(t, "main.mo", `
	model Main
	  import Lib.Gain;
	  Gain g;
	end Main;`)

	logger := logging.NewLogger(logging.LogLevelSilent)
	tr := New(logger)
	tr.SetSearchRoots([]string{libDir})
	res, ok := tr.Translate(src, "Main", nil)
	if !ok {
		t.Fatalf("translation failed with %d errors", logger.ErrorCount())
	}
	if _, found := res.Flat.ComponentTable["g_k"]; !found {
		t.Errorf("imported component missing: %+v", res.Flat.Components)
	}
}

func TestTranslateJSONArtifact(t *testing.T) {
	res := mustTranslate(t,
		"model Integrator Real x; equation der(x) = 1.0; end Integrator;", "Integrator")

	data, err := serialize.ToJSON(res.Document)
	if err != nil {
		t.Fatal(err)
	}
	back, err := serialize.FromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "Integrator" || len(back.States) != 1 {
		t.Errorf("decoded document: %+v", back)
	}
}
