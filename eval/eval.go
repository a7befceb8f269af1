package eval

import (
	"github.com/mhcho1994/rumoca/ast"
)

// Env supplies the bindings a fold needs to resolve names: the declared
// binding expression of a parameter/constant, and the statically known
// extent of an array dimension (for `size(a, dim)`).
type Env interface {
	Binding(name string) (ast.Expression, bool)
	Dimension(name string, dim int) (int64, bool)
}

// maxFoldDepth guards against a binding expression that (incorrectly, but
// not impossibly, given a malformed modifier chain) refers back to itself.
const maxFoldDepth = 64

// Fold attempts to reduce expr to a compile-time constant: literals fold trivially; parameter/constant
// references fold through their declared binding; arithmetic, `and`, `or`,
// `not`, the relational operators, if-expressions, array constructors, and
// `size(array, dim)` on a statically dimensioned array all fold. Anything else -- an algebraic variable, an unbound
// parameter, a non-foldable function call -- yields Unknown, and the caller
// must preserve the original expression as a runtime conditional rather
// than treat the fold as an error.
func Fold(expr ast.Expression, env Env) Value {
	return fold(expr, env, 0)
}

func fold(expr ast.Expression, env Env, depth int) Value {
	if depth > maxFoldDepth {
		return Unknown
	}

	switch e := expr.(type) {
	case *ast.IntLit:
		return Value{Kind: KindInt, Int: e.Value}
	case *ast.FloatLit:
		return Value{Kind: KindFloat, Float: e.Value}
	case *ast.BoolLit:
		return Value{Kind: KindBool, Bool: e.Value}
	case *ast.StringLit:
		return Value{Kind: KindString, Str: e.Value}

	case ast.ComponentReference:
		return foldRef(e, env, depth)
	case *ast.ComponentReference:
		return foldRef(*e, env, depth)

	case *ast.UnaryExpr:
		return foldUnary(e, env, depth)
	case *ast.BinaryExpr:
		return foldBinary(e, env, depth)
	case *ast.IfExpr:
		return foldIf(e, env, depth)
	case *ast.CallExpr:
		return foldCall(e, env, depth)
	case *ast.ArrayExpr:
		return foldArray(e, env, depth)

	default:
		return Unknown
	}
}

func foldRef(ref ast.ComponentReference, env Env, depth int) Value {
	if len(ref.Parts) != 1 || len(ref.Parts[0].Subscripts) != 0 {
		// dotted/subscripted references are never foldable here: the
		// binding environment only resolves bare local names.
		return Unknown
	}

	binding, ok := env.Binding(ref.Parts[0].Name)
	if !ok {
		return Unknown
	}
	return fold(binding, env, depth+1)
}

func foldUnary(e *ast.UnaryExpr, env Env, depth int) Value {
	v := fold(e.Operand, env, depth)
	if v.IsUnknown() {
		return Unknown
	}

	switch e.Op {
	case ast.MINUS:
		if v.Kind == KindInt {
			return Value{Kind: KindInt, Int: -v.Int}
		}
		if v.Kind == KindFloat {
			return Value{Kind: KindFloat, Float: -v.Float}
		}
	case ast.PLUS:
		return v
	case ast.KW_NOT:
		if v.Kind == KindBool {
			return Value{Kind: KindBool, Bool: !v.Bool}
		}
	}
	return Unknown
}

func foldBinary(e *ast.BinaryExpr, env Env, depth int) Value {
	left := fold(e.Left, env, depth)
	right := fold(e.Right, env, depth)
	if left.IsUnknown() || right.IsUnknown() {
		return Unknown
	}

	switch e.Op {
	case ast.KW_AND:
		if left.Kind == KindBool && right.Kind == KindBool {
			return Value{Kind: KindBool, Bool: left.Bool && right.Bool}
		}
	case ast.KW_OR:
		if left.Kind == KindBool && right.Kind == KindBool {
			return Value{Kind: KindBool, Bool: left.Bool || right.Bool}
		}
	case ast.LT, ast.LE, ast.GT, ast.GE, ast.EQ, ast.NE:
		return foldComparison(e.Op, left, right)
	case ast.PLUS, ast.MINUS, ast.STAR, ast.SLASH, ast.CARET:
		return foldArith(e.Op, left, right)
	}
	return Unknown
}

func foldComparison(op int, left, right Value) Value {
	if left.Kind == KindBool && right.Kind == KindBool {
		switch op {
		case ast.EQ:
			return Value{Kind: KindBool, Bool: left.Bool == right.Bool}
		case ast.NE:
			return Value{Kind: KindBool, Bool: left.Bool != right.Bool}
		}
		return Unknown
	}

	if left.Kind == KindString && right.Kind == KindString {
		switch op {
		case ast.EQ:
			return Value{Kind: KindBool, Bool: left.Str == right.Str}
		case ast.NE:
			return Value{Kind: KindBool, Bool: left.Str != right.Str}
		}
		return Unknown
	}

	if !left.IsNumeric() || !right.IsNumeric() {
		return Unknown
	}

	l, r := left.AsFloat(), right.AsFloat()
	var b bool
	switch op {
	case ast.LT:
		b = l < r
	case ast.LE:
		b = l <= r
	case ast.GT:
		b = l > r
	case ast.GE:
		b = l >= r
	case ast.EQ:
		b = l == r
	case ast.NE:
		b = l != r
	default:
		return Unknown
	}
	return Value{Kind: KindBool, Bool: b}
}

func foldArith(op int, left, right Value) Value {
	if !left.IsNumeric() || !right.IsNumeric() {
		return Unknown
	}

	if left.Kind == KindInt && right.Kind == KindInt && op != ast.SLASH {
		switch op {
		case ast.PLUS:
			return Value{Kind: KindInt, Int: left.Int + right.Int}
		case ast.MINUS:
			return Value{Kind: KindInt, Int: left.Int - right.Int}
		case ast.STAR:
			return Value{Kind: KindInt, Int: left.Int * right.Int}
		}
	}

	l, r := left.AsFloat(), right.AsFloat()
	switch op {
	case ast.PLUS:
		return Value{Kind: KindFloat, Float: l + r}
	case ast.MINUS:
		return Value{Kind: KindFloat, Float: l - r}
	case ast.STAR:
		return Value{Kind: KindFloat, Float: l * r}
	case ast.SLASH:
		if r == 0 {
			return Unknown
		}
		return Value{Kind: KindFloat, Float: l / r}
	case ast.CARET:
		if p, ok := intPow(l, r); ok {
			return Value{Kind: KindFloat, Float: p}
		}
		return Unknown
	}
	return Unknown
}

// intPow computes base**exp for integral exp; a non-integral exponent is
// not foldable here (dimension/conditional folding only ever exponentiates
// by small integers), and reports ok=false rather than guessing.
func intPow(base, exp float64) (float64, bool) {
	n := int(exp)
	if float64(n) != exp {
		return 0, false
	}

	neg := n < 0
	if neg {
		n = -n
	}

	result := 1.0
	for i := 0; i < n; i++ {
		result *= base
	}
	if neg {
		if result == 0 {
			return 0, false
		}
		result = 1 / result
	}
	return result, true
}

func foldIf(e *ast.IfExpr, env Env, depth int) Value {
	for i, cond := range e.Conditions {
		cv := fold(cond, env, depth)
		if cv.IsUnknown() || cv.Kind != KindBool {
			return Unknown
		}
		if cv.Bool {
			return fold(e.Branches[i], env, depth)
		}
	}
	return fold(e.ElseBranch, env, depth)
}

func foldCall(e *ast.CallExpr, env Env, depth int) Value {
	if e.Function.String() != "size" || len(e.Args) != 2 {
		return Unknown
	}

	ref, ok := e.Args[0].(ast.ComponentReference)
	if !ok {
		if pref, ok := e.Args[0].(*ast.ComponentReference); ok {
			ref = *pref
		} else {
			return Unknown
		}
	}
	if len(ref.Parts) != 1 {
		return Unknown
	}

	dimVal := fold(e.Args[1], env, depth)
	if dimVal.Kind != KindInt {
		return Unknown
	}

	if n, ok := env.Dimension(ref.Parts[0].Name, int(dimVal.Int)); ok {
		return Value{Kind: KindInt, Int: n}
	}
	return Unknown
}

func foldArray(e *ast.ArrayExpr, env Env, depth int) Value {
	if e.Iterators != nil {
		return Unknown
	}
	elems := make([]Value, len(e.Elements))
	for i, el := range e.Elements {
		v := fold(el, env, depth)
		if v.IsUnknown() {
			return Unknown
		}
		elems[i] = v
	}
	return Value{Kind: KindArray, Array: elems}
}
