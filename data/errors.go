package data

import (
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/pkg/errors"
)

// FatalError wraps an error which leaves the session unable to continue, such as a failure to compute the storage
// allocations of the program.
type FatalError struct {
	err error
}

// NewFatalError wraps err into a FatalError.
func NewFatalError(err error) *FatalError {
	return &FatalError{err: err}
}

// Error returns the message of the wrapped error.
func (e *FatalError) Error() string {
	return "fatal session error: " + e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.err
}

// Cause returns the wrapped error.
func (e *FatalError) Cause() error {
	return e.err
}

// IsFatal reports whether an error must terminate the session it occurred in. Every other error only affects the trace
// step it occurred on.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fatal *FatalError
	return errors.As(err, &fatal) || decoding.IsFatal(err)
}
