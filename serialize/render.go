package serialize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
)

// Render executes a back-end template against doc, writing the rendered
// artifact to w. This is the seam external emitters (CasADi, SymPy, JAX)
// plug into: each emitter is an ordinary template over the stable
// document schema, so this package needs to know nothing about any one of
// them.
func Render(w io.Writer, doc *Document, tmplText, tmplName string) error {
	tmpl, err := template.New(tmplName).Funcs(renderFuncs).Parse(tmplText)
	if err != nil {
		return fmt.Errorf("error parsing template %s: %w", tmplName, err)
	}

	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("error rendering template %s: %w", tmplName, err)
	}
	return nil
}

// RenderFile reads the template at path and renders it against doc.
func RenderFile(w io.Writer, doc *Document, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading template %s: %w", path, err)
	}
	return Render(w, doc, string(data), filepath.Base(path))
}

// renderFuncs are the helpers templates can call; infix is the workhorse for
// emitters that need expressions back in source form.
var renderFuncs = template.FuncMap{
	"infix": Infix,
	"names": func(comps []*Component) []string {
		out := make([]string, len(comps))
		for i, c := range comps {
			out[i] = c.Name
		}
		return out
	},
}

// Infix renders a serialized expression tree back into a conventional infix
// string, parenthesizing every binary operation and if-expression rather than
// tracking precedence.
func Infix(e *Expr) string {
	if e == nil {
		return ""
	}

	switch e.Kind {
	case "integer":
		if e.Int != nil {
			return fmt.Sprintf("%d", *e.Int)
		}
	case "real":
		if e.Real != nil {
			return fmt.Sprintf("%g", *e.Real)
		}
	case "boolean":
		if e.Bool != nil {
			return fmt.Sprintf("%t", *e.Bool)
		}
	case "string":
		if e.Str != nil {
			return fmt.Sprintf("%q", *e.Str)
		}
	case "ref":
		return e.Name
	case "unary":
		if len(e.Args) == 1 {
			if e.Name == "not" {
				return "not " + Infix(e.Args[0])
			}
			return e.Name + Infix(e.Args[0])
		}
	case "binary":
		if len(e.Args) == 2 {
			return "(" + Infix(e.Args[0]) + " " + e.Name + " " + Infix(e.Args[1]) + ")"
		}
	case "if":
		if len(e.Args) >= 3 {
			s := "if " + Infix(e.Args[0]) + " then " + Infix(e.Args[1])
			for i := 2; i+1 < len(e.Args); i += 2 {
				s += " elseif " + Infix(e.Args[i]) + " then " + Infix(e.Args[i+1])
			}
			return "(" + s + " else " + Infix(e.Args[len(e.Args)-1]) + ")"
		}
	case "call", "der", "pre":
		name := e.Name
		if e.Kind != "call" {
			name = e.Kind
		}
		s := name + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += Infix(a)
		}
		return s + ")"
	case "named":
		if len(e.Args) == 1 {
			return e.Name + " = " + Infix(e.Args[0])
		}
	case "array":
		s := "{"
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += Infix(a)
		}
		return s + "}"
	case "tuple":
		s := "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += Infix(a)
		}
		return s + ")"
	case "blank":
		return ""
	case "range":
		switch len(e.Args) {
		case 2:
			return Infix(e.Args[0]) + ":" + Infix(e.Args[1])
		case 3:
			return Infix(e.Args[0]) + ":" + Infix(e.Args[1]) + ":" + Infix(e.Args[2])
		}
	case "end":
		return "end"
	case "colon":
		return ":"
	}

	return "?"
}
