package flatten

import (
	"sort"
	"strings"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
)

// unionFind is a textbook disjoint-set structure over flat connector
// prefixes: every connect(a, b) equation unions the two
// prefixes it names, so that a chain of pairwise connections -- a three-way
// junction written as connect(a,b); connect(b,c) -- collapses into one
// connection set spanning {a, b, c}.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// flatPrefix renders a (possibly dotted) connector reference in its
// underscore-joined flat form, matching the prefixing scheme liftComposite
// applies to every lifted component name.
func flatPrefix(ref ast.ComponentReference) string {
	parts := make([]string, len(ref.Parts))
	for i, p := range ref.Parts {
		parts[i] = p.Name
	}
	return strings.Join(parts, "_")
}

// expandConnects expands connection sets: every connect(a, b) equation in the
// fully assembled root FlatClass is removed and replaced, per connection
// set, by one flow-summation equation per flow variable and one set of
// potential-equality equations per non-flow (potential or stream) variable.
// Running this once, over the complete equation list of the root FlatClass,
// is required rather than optional: two composite sub-components can only
// be connected from their common parent, so the full connection graph only
// exists once every level of composition has been lifted.
func (b *Builder) expandConnects(fc *FlatClass) []ast.Equation {
	connects, rest := extractConnects(fc.Equations)
	if len(connects) == 0 {
		return fc.Equations
	}

	uf := newUnionFind()
	for _, c := range connects {
		uf.union(flatPrefix(c.A), flatPrefix(c.B))
	}

	groupSet := make(map[string]map[string]bool)
	for _, c := range connects {
		a, bb := flatPrefix(c.A), flatPrefix(c.B)
		root := uf.find(a)
		if groupSet[root] == nil {
			groupSet[root] = make(map[string]bool)
		}
		groupSet[root][a] = true
		groupSet[root][bb] = true
	}

	var roots []string
	for root := range groupSet {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	out := append([]ast.Equation(nil), rest...)
	for _, root := range roots {
		members := make([]string, 0, len(groupSet[root]))
		for m := range groupSet[root] {
			members = append(members, m)
		}
		sort.Strings(members)
		out = append(out, b.connectionEquations(fc, members)...)
	}
	return out
}

// connectionEquations builds the replacement equations for one connection
// set (members, the flat prefixes of every connector joined together): one
// Σ = 0 equation per flow field, and, per potential/stream field, one
// equality of each later member to the first. Stream connectors are treated as potential
// variables here (a documented simplification: full inStream()/actualStream
// mixing semantics are out of scope).
func (b *Builder) connectionEquations(fc *FlatClass, members []string) []ast.Equation {
	if len(members) < 2 {
		return nil
	}

	fields := connectorFields(fc, members[0])
	var out []ast.Equation

	for _, field := range fields {
		first, ok := fc.ComponentTable[members[0]+"_"+field]
		if !ok {
			continue
		}

		if first.ConnectorK == ConnectorFlowKind {
			out = append(out, flowSumEquation(members, field))
			continue
		}

		if first.ConnectorK == ConnectorStreamKind {
			b.errorAt(first.Pos, logging.CatUnsupported, "stream connector %q: full stream mixing semantics not supported, treated as potential", field)
		}

		for i := 1; i < len(members); i++ {
			out = append(out, potentialEqualEquation(members[0], members[i], field))
		}
	}

	return out
}

// ConnectorFlowKind and ConnectorStreamKind alias ast's connector-kind
// constants for readability at call sites in this file.
const (
	ConnectorFlowKind   = ast.ConnectorFlow
	ConnectorStreamKind = ast.ConnectorStream
)

// connectorFields lists the field suffixes of the connector instance named
// prefix, by scanning the flat component table for every name of the form
// "<prefix>_<field>".
func connectorFields(fc *FlatClass, prefix string) []string {
	var fields []string
	want := prefix + "_"
	for _, c := range fc.Components {
		if strings.HasPrefix(c.Name, want) {
			fields = append(fields, c.Name[len(want):])
		}
	}
	sort.Strings(fields)
	return fields
}

func refTo(name string) ast.Expression {
	r := ast.ComponentReference{Parts: []ast.ComponentRefPart{{Name: name}}}
	return &r
}

func flowSumEquation(members []string, field string) ast.Equation {
	var sum ast.Expression = refTo(members[0] + "_" + field)
	for _, m := range members[1:] {
		sum = &ast.BinaryExpr{Op: ast.PLUS, Left: sum, Right: refTo(m + "_" + field)}
	}
	return &ast.SimpleEquation{LHS: sum, RHS: &ast.FloatLit{Value: 0}}
}

func potentialEqualEquation(a, b, field string) ast.Equation {
	return &ast.SimpleEquation{LHS: refTo(a + "_" + field), RHS: refTo(b + "_" + field)}
}

// extractConnects pulls every ConnectEquation out of eqs (searching one
// level into for-equation bodies, the one nesting form connect() legally
// appears under for array-of-connector iteration) and returns the
// connections found plus the remaining equations with those connects
// removed.
func extractConnects(eqs []ast.Equation) (connects []*ast.ConnectEquation, rest []ast.Equation) {
	for _, eq := range eqs {
		switch e := eq.(type) {
		case *ast.ConnectEquation:
			connects = append(connects, e)
		case *ast.ForEquation:
			inner, keep := extractConnects(e.Body)
			connects = append(connects, inner...)
			n := *e
			n.Body = keep
			rest = append(rest, &n)
		default:
			rest = append(rest, eq)
		}
	}
	return connects, rest
}
