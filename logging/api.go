package logging

// ParseLogLevel converts a CLI-facing log level name into its numeric
// constant. Unrecognized names (and the empty string) default to verbose.
func ParseLogLevel(name string) int {
	switch name {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warning", "warn":
		return LogLevelWarning
	default:
		return LogLevelVerbose
	}
}

// LogCompileError logs a fatal-or-collected compilation error (user-induced,
// bad source) at the given category.
func (l *Logger) LogCompileError(lctx *LogContext, message string, category int, pos *TextPosition) {
	l.handleMsg(&CompileMessage{
		Message:  message,
		Category: category,
		Position: pos,
		Context:  lctx,
		IsErr:    true,
	})
}

// LogCompileErrorHint is LogCompileError with an attached hint string.
func (l *Logger) LogCompileErrorHint(lctx *LogContext, message, hint string, category int, pos *TextPosition) {
	l.handleMsg(&CompileMessage{
		Message:  message,
		Hint:     hint,
		Category: category,
		Position: pos,
		Context:  lctx,
		IsErr:    true,
	})
}

// LogCompileWarning logs a non-fatal compilation warning.
func (l *Logger) LogCompileWarning(lctx *LogContext, message string, category int, pos *TextPosition) {
	l.handleMsg(&CompileMessage{
		Message:  message,
		Category: category,
		Position: pos,
		Context:  lctx,
		IsErr:    false,
	})
}

// LogConfigError logs an error unrelated to any single source file: a missing
// module, an unreadable project file, an invalid MODELICAPATH entry.
func (l *Logger) LogConfigError(kind, message string) {
	l.handleConfigErr(&ConfigError{Kind: kind, Message: message})
}
