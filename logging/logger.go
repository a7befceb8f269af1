package logging

// Enumeration of the different log levels.
const (
	LogLevelSilent  = iota // no output at all
	LogLevelError          // only errors and the closing summary
	LogLevelWarning        // errors, warnings, and the closing summary
	LogLevelVerbose        // errors, warnings, phase progress, closing summary (DEFAULT)
)

// Logger accumulates and displays diagnostics for a single translation
// request. A Logger belongs to exactly one Translator: translation is
// synchronous per request, so no locking is required.
type Logger struct {
	LogLevel int

	errorCount int

	// messages accumulates every diagnostic logged, in emission order, so a
	// caller can replay them (eg. into the serialized document's diagnostics
	// side-channel) after translation completes.
	messages []*CompileMessage
}

// NewLogger creates a Logger at the given log level.
func NewLogger(loglevel int) *Logger {
	return &Logger{LogLevel: loglevel}
}

// ShouldProceed reports whether no errors have been logged so far. The DAE builder only runs once flattening reports no errors.
func (l *Logger) ShouldProceed() bool {
	return l.errorCount == 0
}

// ErrorCount returns the number of errors (not warnings) logged so far.
func (l *Logger) ErrorCount() int {
	return l.errorCount
}

// Messages returns every compile message logged so far, in emission order.
func (l *Logger) Messages() []*CompileMessage {
	return l.messages
}

// Diagnostics projects every logged compile message into the serializable
// Diagnostic form, preserving emission order.
func (l *Logger) Diagnostics() []Diagnostic {
	diags := make([]Diagnostic, len(l.messages))
	for i, m := range l.messages {
		diags[i] = m.ToDiagnostic()
	}
	return diags
}

func (l *Logger) handleMsg(lm *CompileMessage) {
	l.messages = append(l.messages, lm)

	if lm.isError() {
		l.errorCount++
	}

	if l.LogLevel > LogLevelSilent {
		if lm.isError() || l.LogLevel >= LogLevelWarning {
			lm.display()
		}
	}
}

func (l *Logger) handleConfigErr(ce *ConfigError) {
	l.errorCount++

	if l.LogLevel > LogLevelSilent {
		ce.display()
	}
}
