package flatten

import (
	"fmt"

	"github.com/mhcho1994/rumoca/ast"
	"github.com/mhcho1994/rumoca/logging"
)

func textPos(p ast.Position) *logging.TextPosition {
	return &logging.TextPosition{StartLn: p.StartLn, StartCol: p.StartCol, EndLn: p.EndLn, EndCol: p.EndCol}
}

func (b *Builder) errorAt(pos ast.Position, category int, format string, args ...interface{}) {
	b.logger.LogCompileError(b.lctx, fmt.Sprintf(format, args...), category, textPos(pos))
}
