package compiler

import "fmt"

// CompileError names the offending command: a missing block, wrong
// arity, or otherwise malformed AST node the compiler refuses to lower.
type CompileError struct {
	Command string
	Msg     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("command %q: %s", e.Command, e.Msg)
}
