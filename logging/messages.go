package logging

// TextPosition describes a span of source text by line/column range. The
// scanner counts a tab as four columns, the same width the diagnostic display
// expands tabs to.
type TextPosition struct {
	StartLn, StartCol int
	EndLn, EndCol     int
}

// LogContext identifies the file (and owning package, if any) a diagnostic
// was produced while processing.
type LogContext struct {
	// PackagePath is the fully-qualified path of the package containing
	// FilePath, or "" if the file was loaded standalone.
	PackagePath string

	FilePath string
}

// LogMessage is the common interface implemented by every diagnostic kind the
// translator can emit.
type LogMessage interface {
	isError() bool
	display()
}

// Enumeration of diagnostic categories. Balance is the only category that
// is never fatal.
const (
	CatLexical = iota
	CatParse
	CatResolve
	CatFlatten
	CatClassify
	CatUnsupported
	CatBalance
	CatConfig
)

var categoryNames = map[int]string{
	CatLexical:     "Lexical",
	CatParse:       "Syntax",
	CatResolve:     "Resolve",
	CatFlatten:     "Flatten",
	CatClassify:    "Classify",
	CatUnsupported: "Unsupported",
	CatBalance:     "Balance",
	CatConfig:      "Config",
}

// CompileMessage represents a single error or warning produced while
// translating a Modelica source tree. It carries everything needed to render
// a user-facing diagnostic: the category, the message text, the optional
// source span, an optional hint, and the file context it occurred in.
type CompileMessage struct {
	Category int
	Message  string
	Hint     string
	Position *TextPosition
	Context  *LogContext
	IsErr    bool
}

func (cm *CompileMessage) isError() bool {
	return cm.IsErr
}

// ConfigError represents a failure outside of any single source file: a
// missing module, a malformed project file, an unreadable MODELICAPATH entry.
type ConfigError struct {
	Kind    string
	Message string
}

func (ce *ConfigError) isError() bool {
	return true
}

// Diagnostic is the serializable, display-independent projection of a
// CompileMessage -- what external callers (the CLI, the DAE document's
// diagnostics side-channel) actually consume.
type Diagnostic struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
	File     string `json:"file,omitempty"`
	StartLn  int    `json:"start_line,omitempty"`
	StartCol int    `json:"start_col,omitempty"`
	EndLn    int    `json:"end_line,omitempty"`
	EndCol   int    `json:"end_col,omitempty"`
	IsError  bool   `json:"is_error"`
}

// ToDiagnostic projects a CompileMessage into its serializable form.
func (cm *CompileMessage) ToDiagnostic() Diagnostic {
	d := Diagnostic{
		Category: categoryNames[cm.Category],
		Message:  cm.Message,
		Hint:     cm.Hint,
		IsError:  cm.IsErr,
	}

	if cm.Context != nil {
		d.File = cm.Context.FilePath
	}

	if cm.Position != nil {
		d.StartLn, d.StartCol = cm.Position.StartLn, cm.Position.StartCol
		d.EndLn, d.EndCol = cm.Position.EndLn, cm.Position.EndCol
	}

	return d
}
