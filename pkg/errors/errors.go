package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(msg string) error {
	return goErrors.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// contextError annotates an error with a short description of what was being
// done when it occurred.
type contextError struct {
	context string
	err     error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// WithContext wraps `err` with `context`. The original error can be retrieved
// with RootCause.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

// RootCause returns the innermost error that was wrapped by WithContext.
// Typed errors (e.g. FilesystemError) are returned as is, rather than
// unwrapped down to the underlying syscall error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// users, without any of the context added while it propagated.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError with a formatted message.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the user facing message.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}
