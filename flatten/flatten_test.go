package flatten

import (
	"strings"
	"testing"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
)

func flattenSource(t *testing.T, src, root string) (*FlatClass, *logging.Logger, bool) {
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

	fc, ok := NewBuilder(table, logger).Flatten(root)
	return fc, logger, ok
}

func mustFlatten(t *testing.T, src, root string) *FlatClass {
	t.Helper()
	fc, logger, ok := flattenSource(t, src, root)
	if !ok {
		t.Fatalf("flatten failed with %d errors", logger.ErrorCount())
	}
	return fc
}

// refName unwraps an expression as a component reference path; the parser
// produces value nodes while rewriting passes may produce pointers.
func refName(t *testing.T, e ast.Expression) string {
	t.Helper()
	switch r := e.(type) {
	case ast.ComponentReference:
		return r.String()
	case *ast.ComponentReference:
		return r.String()
	}
	t.Fatalf("not a component reference: %T", e)
	return ""
}

func componentNames(fc *FlatClass) []string {
	names := make([]string, len(fc.Components))
	for i, c := range fc.Components {
		names[i] = c.Name
	}
	return names
}

func TestFlattenAtomicComponents(t *testing.T) {
	fc := mustFlatten(t, "model M Real x; Real y; equation der(x) = 1.0; der(y) = x; end M;", "M")

	if len(fc.Components) != 2 || fc.Components[0].Name != "x" || fc.Components[1].Name != "y" {
		t.Errorf("components: %v", componentNames(fc))
	}
	if len(fc.Equations) != 2 {
		t.Errorf("got %d equations", len(fc.Equations))
	}
}

func TestFlattenEmptyClass(t *testing.T) {
	fc := mustFlatten(t, "model Empty end Empty;", "Empty")
	if len(fc.Components) != 0 || len(fc.Equations) != 0 {
		t.Errorf("empty class: %d components, %d equations", len(fc.Components), len(fc.Equations))
	}
}

func TestFlattenExtendsWithModifier(t *testing.T) {
	src := `
	model Base parameter Real k = 1; Real v; equation der(v) = k * v; end Base;
	model Derived extends Base(k = 2); end Derived;`

	fc := mustFlatten(t, src, "Derived")

	k := fc.ComponentTable["k"]
	if k == nil || k.Variability != ast.VarParameter {
		t.Fatal("parameter k missing")
	}
	lit, ok := k.Binding.(*ast.IntLit)
	if !ok || lit.Value != 2 {
		t.Errorf("k binding: %#v", k.Binding)
	}
	if len(fc.Equations) != 1 {
		t.Errorf("got %d equations", len(fc.Equations))
	}
}

func TestFlattenComposite(t *testing.T) {
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

	fc := mustFlatten(t, src, "Quadrotor")

	want := []string{"m1_tau", "m1_omega_ref", "m1_omega", "m2_tau", "m2_omega_ref", "m2_omega"}
	got := componentNames(fc)
	if len(got) != len(want) {
		t.Fatalf("components: %v", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("component %d: got %q, want %q", i, got[i], w)
		}
	}

	// the sub-instance inputs are demoted: they are no longer root inputs
	if fc.ComponentTable["m1_omega_ref"].Causality != ast.CausalityNone {
		t.Error("m1_omega_ref still marked input after lifting")
	}

	if len(fc.Equations) != 4 {
		t.Errorf("got %d equations", len(fc.Equations))
	}

	// the root's dotted references are collapsed to the flat form
	se, ok := fc.Equations[2].(*ast.SimpleEquation)
	if !ok {
		t.Fatalf("equation 2: %T", fc.Equations[2])
	}
	if got := refName(t, se.LHS); got != "m1_omega_ref" {
		t.Errorf("equation 2 LHS: %q", got)
	}
}

func TestFlattenStaticConditional(t *testing.T) {
	src := `
	model M
	  parameter Integer n = 0;
	  input Real u;
	  output Real y;
	equation
	  if n == 0 then y = u; else y = 2 * u; end if;
	end M;`

	fc := mustFlatten(t, src, "M")

	if len(fc.Equations) != 1 {
		t.Fatalf("got %d equations", len(fc.Equations))
	}
	se, ok := fc.Equations[0].(*ast.SimpleEquation)
	if !ok {
		t.Fatalf("got %T", fc.Equations[0])
	}
	if got := refName(t, se.RHS); got != "u" {
		t.Errorf("selected branch RHS: %q", got)
	}
}

func TestFlattenDynamicConditionalPreserved(t *testing.T) {
	src := `
	model M
	  Real x;
	  Real y;
	equation
	  der(x) = 1;
	  if x > 0 then y = 1; else y = 2; end if;
	end M;`

	fc := mustFlatten(t, src, "M")

	found := false
	for _, eq := range fc.Equations {
		if _, ok := eq.(*ast.IfEquation); ok {
			found = true
		}
	}
	if !found {
		t.Error("runtime if-equation was not preserved")
	}
}

func TestFlattenConnect(t *testing.T) {
	src := `
	connector Pin flow Real i; Real v; end Pin;
	model M
	  Pin a;
	  Pin b;
	equation
	  connect(a, b);
	end M;`

	fc := mustFlatten(t, src, "M")

	var flowEq, potentialEq *ast.SimpleEquation
	for _, eq := range fc.Equations {
		se, ok := eq.(*ast.SimpleEquation)
		if !ok {
			t.Fatalf("unexpected equation %T", eq)
		}
		if _, isSum := se.LHS.(*ast.BinaryExpr); isSum {
			flowEq = se
		} else {
			potentialEq = se
		}
	}

	if flowEq == nil {
		t.Fatal("no flow-summation equation")
	}
	sum := flowEq.LHS.(*ast.BinaryExpr)
	if sum.Op != ast.PLUS {
		t.Errorf("flow sum operator: %d", sum.Op)
	}

	if potentialEq == nil {
		t.Fatal("no potential-equality equation")
	}
	if l, r := refName(t, potentialEq.LHS), refName(t, potentialEq.RHS); l != "a_v" || r != "b_v" {
		t.Errorf("potential equality: %s = %s", l, r)
	}
}

func TestFlattenConnectChain(t *testing.T) {
	// three pins connected pairwise collapse into one connection set
	src := `
	connector Pin flow Real i; Real v; end Pin;
	model M
	  Pin a;
	  Pin b;
	  Pin c;
	equation
	  connect(a, b);
	  connect(b, c);
	end M;`

	fc := mustFlatten(t, src, "M")

	// one three-term flow sum and two potential equalities
	if len(fc.Equations) != 3 {
		t.Errorf("got %d equations", len(fc.Equations))
	}
}

func TestFlattenSelfExtendsRejected(t *testing.T) {
	_, logger, ok := flattenSource(t, "model A extends A; end A;", "A")
	if ok {
		t.Error("self-extending class flattened successfully")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no cycle diagnostic logged")
	}
}

func TestFlattenModifierOnUnknownName(t *testing.T) {
	src := `
	model Base Real v; end Base;
	model Derived extends Base(nope = 1); end Derived;`

	_, logger, ok := flattenSource(t, src, "Derived")
	if ok {
		t.Error("unknown modifier target accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenFinalModifierRejected(t *testing.T) {
	src := `
	model Base final parameter Real k = 1; end Base;
	model Derived extends Base(k = 2); end Derived;`

	_, logger, ok := flattenSource(t, src, "Derived")
	if ok {
		t.Error("modification of final element accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenComponentOverride(t *testing.T) {
	src := `
	model Base Real v; end Base;
	model Derived extends Base; parameter Real v = 3; end Derived;`

	fc := mustFlatten(t, src, "Derived")

	if len(fc.Components) != 1 {
		t.Fatalf("got %d components", len(fc.Components))
	}
	if fc.Components[0].Variability != ast.VarParameter {
		t.Error("local component did not override the inherited one")
	}
}

func TestFlattenTypeAlias(t *testing.T) {
	src := `
	type Voltage = Real;
	model M Voltage v; equation v = 1; end M;`

	fc := mustFlatten(t, src, "M")

	if fc.ComponentTable["v"].TypeName != "Real" {
		t.Errorf("alias resolved to %q", fc.ComponentTable["v"].TypeName)
	}
}

func TestFlattenConditionalComponent(t *testing.T) {
	src := `
	model M
	  parameter Boolean useExtra = false;
	  Real x;
	  Real extra if useExtra;
	equation
	  der(x) = 1;
	end M;`

	fc := mustFlatten(t, src, "M")

	if _, present := fc.ComponentTable["extra"]; present {
		t.Error("statically disabled component was instantiated")
	}
}

func TestFlattenRedeclaration(t *testing.T) {
	src := `
	model Slow Real v; equation der(v) = 1; end Slow;
	model Fast Real v; equation der(v) = 10; end Fast;
	model Base replaceable Slow engine; end Base;
	model Tuned extends Base(redeclare Fast engine); end Tuned;`

	fc := mustFlatten(t, src, "Tuned")

	if _, ok := fc.ComponentTable["engine_v"]; !ok {
		t.Fatalf("components: %v", componentNames(fc))
	}
	se := fc.Equations[0].(*ast.SimpleEquation)
	lit, ok := se.RHS.(*ast.IntLit)
	if !ok || lit.Value != 10 {
		t.Errorf("redeclared type not substituted: %#v", se.RHS)
	}
}

func TestFlattenRedeclareNonReplaceableRejected(t *testing.T) {
	src := `
	model Slow Real v; end Slow;
	model Fast Real v; end Fast;
	model Base Slow engine; end Base;
	model Tuned extends Base(redeclare Fast engine); end Tuned;`

	_, logger, ok := flattenSource(t, src, "Tuned")
	if ok {
		t.Error("redeclaration of non-replaceable element accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenFunctionInlining(t *testing.T) {
	src := `
	function Twice
	  input Real a;
	  output Real b;
	algorithm
	  b := 2 * a;
	end Twice;
	model M
	  Real q;
	equation
	  q = Twice(3.0);
	end M;`

	fc := mustFlatten(t, src, "M")

	// fresh temporaries for the input and output, plus q itself
	if len(fc.Components) != 3 {
		t.Fatalf("components: %v", componentNames(fc))
	}

	// the input-binding equation precedes the rewritten call equation
	if len(fc.Equations) != 2 {
		t.Fatalf("got %d equations", len(fc.Equations))
	}

	// the call site now references the fresh output variable
	se := fc.Equations[1].(*ast.SimpleEquation)
	if got := refName(t, se.RHS); !strings.HasPrefix(got, "Twice_b") {
		t.Errorf("call replacement: %q", got)
	}

	// the function body was lifted into the algorithm section, renamed
	if len(fc.Algorithms) != 1 {
		t.Fatalf("got %d statements", len(fc.Algorithms))
	}
	assign := fc.Algorithms[0].(*ast.AssignStatement)
	if got := refName(t, assign.LHS[0]); !strings.HasPrefix(got, "Twice_b") {
		t.Errorf("lifted assignment target: %q", got)
	}
}

func TestFlattenTupleEquationExpansion(t *testing.T) {
	src := `
	function MinMax
	  input Real a;
	  input Real b;
	  output Real lo;
	  output Real hi;
	algorithm
	  if a < b then lo := a; hi := b; else lo := b; hi := a; end if;
	end MinMax;
	model M
	  Real p;
	  Real q;
	equation
	  (p, q) = MinMax(1.0, 2.0);
	end M;`

	fc := mustFlatten(t, src, "M")

	// two input bindings, then one equation per tuple target
	if len(fc.Equations) != 4 {
		t.Fatalf("got %d equations", len(fc.Equations))
	}

	first := fc.Equations[2].(*ast.SimpleEquation)
	if got := refName(t, first.LHS); got != "p" {
		t.Errorf("target 0: %q", got)
	}
	if got := refName(t, first.RHS); !strings.HasPrefix(got, "MinMax_lo") {
		t.Errorf("target 0 bound to %q", got)
	}

	second := fc.Equations[3].(*ast.SimpleEquation)
	if got := refName(t, second.LHS); got != "q" {
		t.Errorf("target 1: %q", got)
	}
	if got := refName(t, second.RHS); !strings.HasPrefix(got, "MinMax_hi") {
		t.Errorf("target 1 bound to %q", got)
	}

	// p, q, and the four call temporaries
	if len(fc.Components) != 6 {
		t.Errorf("components: %v", componentNames(fc))
	}
	if len(fc.Algorithms) != 1 {
		t.Errorf("got %d lifted statements", len(fc.Algorithms))
	}
}

func TestFlattenTupleEquationBlankSlot(t *testing.T) {
	src := `
	function MinMax
	  input Real a;
	  input Real b;
	  output Real lo;
	  output Real hi;
	algorithm
	  lo := a;
	  hi := b;
	end MinMax;
	model M
	  Real q;
	equation
	  (, q) = MinMax(1.0, 2.0);
	end M;`

	fc := mustFlatten(t, src, "M")

	// a blank slot discards the first output: two bindings plus q's equation
	if len(fc.Equations) != 3 {
		t.Fatalf("got %d equations", len(fc.Equations))
	}
	last := fc.Equations[2].(*ast.SimpleEquation)
	if got := refName(t, last.LHS); got != "q" {
		t.Errorf("target: %q", got)
	}
}

func TestFlattenTupleEquationExternalRejected(t *testing.T) {
	src := `
	function Split
	  input Real a;
	  output Real x;
	  output Real y;
	external "C";
	end Split;
	model M
	  Real p;
	  Real q;
	equation
	  (p, q) = Split(1.0);
	end M;`

	_, logger, ok := flattenSource(t, src, "M")
	if ok {
		t.Error("tuple equation with an external call accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenTupleEquationArityMismatch(t *testing.T) {
	src := `
	function One
	  input Real a;
	  output Real x;
	algorithm
	  x := a;
	end One;
	model M
	  Real p;
	  Real q;
	equation
	  (p, q) = One(1.0);
	end M;`

	_, logger, ok := flattenSource(t, src, "M")
	if ok {
		t.Error("tuple equation with mismatched arity accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenExternalFunctionPassesThrough(t *testing.T) {
	src := `
	function Ext
	  input Real a;
	  output Real b;
	external "C";
	end Ext;
	model M
	  Real q;
	equation
	  q = Ext(1.0);
	end M;`

	fc := mustFlatten(t, src, "M")

	se := fc.Equations[0].(*ast.SimpleEquation)
	if _, ok := se.RHS.(*ast.CallExpr); !ok {
		t.Errorf("external call rewritten: %#v", se.RHS)
	}
}

func TestFlattenUnresolvedTypeRejected(t *testing.T) {
	_, logger, ok := flattenSource(t, "model M Missing x; end M;", "M")
	if ok {
		t.Error("unresolved component type accepted")
	}
	if logger.ErrorCount() == 0 {
		t.Error("no diagnostic logged")
	}
}

func TestFlattenNestedComposite(t *testing.T) {
	src := `
	model Inner Real w; equation der(w) = 1; end Inner;
	model Mid Inner inner1; end Mid;
	model Outer Mid mid1; end Outer;`

	fc := mustFlatten(t, src, "Outer")

	if _, ok := fc.ComponentTable["mid1_inner1_w"]; !ok {
		t.Errorf("deep name missing: %v", componentNames(fc))
	}
}
