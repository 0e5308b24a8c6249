package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures one call frame's worth of trace information at the
// moment a runtime error is raised: which function was executing and at
// what source line. Adapted from smog's pkg/vm/errors.go StackFrame (which
// also tracks a message selector and column for its Smalltalk sends); this
// generalizes it to the plain function-name/source-line pair spec.md §6
// prints in a runtime trace.
type StackFrame struct {
	FuncName string // "" at the top level (Error prints it as "script"), else the function's name
	Line     int
}

// RuntimeError is a source-language runtime fault: an operand type
// mismatch, an undefined global, calling a non-callable, and so on. Its
// Error() string is exactly what spec.md §6 asks the VM to print to
// stderr: the message, then one "[line L] in <fn-name-or-script>" line per
// frame, innermost first.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		frame := e.StackTrace[i]
		name := frame.FuncName
		if name == "" {
			name = "script"
		}
		b.WriteString(fmt.Sprintf("\n[line %d] in %s", frame.Line, name))
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
