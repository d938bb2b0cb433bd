package vm

import "fmt"

// RuntimeError covers stack underflow, an undefined CALL_PROC target,
// or an unknown opcode encountered during execution.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
