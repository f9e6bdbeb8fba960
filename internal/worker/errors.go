package worker

import "fmt"

type ErrorKind string

const (
	ErrorInvalidInput ErrorKind = "invalid_input"
	ErrorInvalidState ErrorKind = "invalid_state"
	ErrorNotFound     ErrorKind = "not_found"
	ErrorInternal     ErrorKind = "internal"
)

// Error tags a failure with its taxonomy kind so callers can tell bad input
// apart from transient faults.
type Error struct {
	Kind ErrorKind
	err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether retrying the operation can succeed. Only
// internal faults qualify; malformed input and unknown resources never heal
// on retry.
func (e *Error) Retryable() bool {
	return e.Kind == ErrorInternal
}
