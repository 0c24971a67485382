package errors

import (
	"fmt"
	"os"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// NotUnderRoot is returned when a path is translated from a tree root that
// doesn't contain it.
type NotUnderRoot struct {
	Path string
	Root string
}

func (err NotUnderRoot) Error() string {
	return fmt.Sprintf("%q is not under root %q", err.Path, err.Root)
}

// SameRoot is returned when both sides of a mirror are the same directory.
type SameRoot struct {
	Root string
}

func (err SameRoot) Error() string {
	return fmt.Sprintf("cannot mirror %q onto itself", err.Root)
}

// NestedRoots is returned when one tree root lives inside the other. Changes
// mirrored into the inner root would be picked up again under the outer one.
type NestedRoots struct {
	Outer string
	Inner string
}

func (err NestedRoots) Error() string {
	return fmt.Sprintf("%q is nested inside %q", err.Inner, err.Outer)
}

// FilesystemError is a failed create, copy or remove.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (err *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %s", err.Op, err.Path, err.Err)
}

func (err *FilesystemError) Unwrap() error {
	return err.Err
}

// Kind returns a short name for the underlying cause, used when logging.
func (err *FilesystemError) Kind() string {
	switch {
	case Is(err.Err, os.ErrNotExist):
		return "not-exist"
	case Is(err.Err, os.ErrPermission):
		return "permission"
	case Is(err.Err, os.ErrExist):
		return "exist"
	default:
		return fmt.Sprintf("%T", RootCause(err.Err))
	}
}

// NewFilesystemError wraps err for the given operation. A nil err stays nil.
func NewFilesystemError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}

// IsFilesystemError returns the FilesystemError in err's chain, if any.
func IsFilesystemError(err error) (*FilesystemError, bool) {
	var fsErr *FilesystemError
	if As(err, &fsErr) {
		return fsErr, true
	}
	return nil, false
}
