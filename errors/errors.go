// Package errors implements spec.md §4.D's two-stage error translation:
// a VFS error kind maps to a POSIX-like errno, which in turn maps to an NT
// status code.
package errors

import "fmt"

// DriverError is the error interface every dispatcher-facing error value
// implements: a plain error, plus builders for attaching context without
// losing the original sentinel for errors.Is comparisons.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type customDriverError struct {
	message       string
	originalError error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
