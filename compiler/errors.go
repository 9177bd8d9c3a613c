package compiler

import "fmt"

// CompileError is a single diagnostic produced while compiling. The
// compiler keeps parsing after the first error (suppressing cascading
// messages via panicMode) so a single Compile call can surface every
// independent mistake in a source file, not just the first.
type CompileError struct {
	Line    int
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("💥 CompileError [line %d]: %s", e.Line, e.Message)
}
