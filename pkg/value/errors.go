package value

import "fmt"

// Error is an evaluation failure. Error() renders as "<Kind>: <Msg>", the
// shape the block layer looks for when it shortens interpreter output.
type Error struct {
	Kind string
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Msg
}

// Errorf builds an *Error of the given kind.
func Errorf(kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// TypeErrorf is shorthand for Errorf("TypeError", ...).
func TypeErrorf(format string, args ...any) error {
	return Errorf("TypeError", format, args...)
}
