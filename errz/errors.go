// Package errz defines the two error classes raised while assembling
// bytecode: invariant violations, which are programming errors in the
// caller and abort via panic, and resource limits, which are returned.
package errz

import (
	"errors"
	"fmt"
)

// FriendlyError is an interface for errors that have a human friendly message
// in addition to a the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// InvariantError reports misuse of the assembler API. It is raised with
// panic and converted back to an error by Catch.
type InvariantError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *InvariantError) Unwrap() error {
	return e.Cause
}

// FriendlyErrorMessage returns the message prefixed with the description
// of its code.
func (e *InvariantError) FriendlyErrorMessage() string {
	return fmt.Sprintf("%s (%s): %s", e.Code.Description(), e.Code, e.Message)
}

// LimitError reports that a value exceeded what the encoding can hold.
type LimitError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("limit exceeded [%s]: %s", e.Code, e.Message)
}

// FriendlyErrorMessage returns the message prefixed with the description
// of its code.
func (e *LimitError) FriendlyErrorMessage() string {
	return fmt.Sprintf("%s (%s): %s", e.Code.Description(), e.Code, e.Message)
}

// Invariantf returns a new InvariantError.
func Invariantf(code ErrorCode, format string, args ...any) *InvariantError {
	return &InvariantError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Panicf raises a new InvariantError.
func Panicf(code ErrorCode, format string, args ...any) {
	panic(Invariantf(code, format, args...))
}

// Limitf returns a new LimitError.
func Limitf(code ErrorCode, format string, args ...any) *LimitError {
	return &LimitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsInvariant returns true if err is or wraps an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsLimit returns true if err is or wraps a LimitError.
func IsLimit(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// Catch runs fn and converts an InvariantError panic into a returned error.
// Any other panic is re-raised.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			err = ie
		}
	}()
	fn()
	return nil
}
