// Structured error types with cause chain support, plus the package's
// sentinel errors.

package promise

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCurrentLoop indicates that an operation required the calling
	// goroutine to be inside a Wait, but no event loop is active on it.
	ErrNoCurrentLoop = errors.New("promise: no event loop is running on this goroutine")

	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("promise: event loop has been closed")

	// ErrReentrantWait is the panic value raised when Wait is re-entered on a
	// loop that the calling goroutine is already driving.
	ErrReentrantWait = errors.New("promise: Wait re-entered on the same event loop")

	// ErrPromiseConsumed is the panic value raised when a promise handle is
	// used after its node has been moved out (by Then, Fork, Wait, or Absolve).
	ErrPromiseConsumed = errors.New("promise: promise already consumed")

	// ErrNilPromise rejects a chained promise whose continuation returned a
	// nil promise handle.
	ErrNilPromise = errors.New("promise: continuation returned a nil promise")

	// ErrGoexit rejects a promisified function whose goroutine exited via
	// runtime.Goexit without returning.
	ErrGoexit = errors.New("promise: goroutine exited via runtime.Goexit")
)

// PanicError wraps a panic value recovered from a user-supplied function.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("promise: recovered panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
//
// If the panic Value is not an error (e.g., a string or other type),
// returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// BrokenError is the failure value carried by promises constructed with
// [Broken]: a message with an optional underlying cause.
type BrokenError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *BrokenError) Error() string {
	if e.Message == "" {
		return "broken promise"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *BrokenError) Unwrap() error {
	return e.Cause
}

// AggregateError accumulates multiple failures observed while settling a
// single promise, for example a primary rejection plus a panic recovered
// while releasing a dependency. The first entry is the primary failure;
// later entries were added in the order they were observed.
type AggregateError struct {
	Message string
	Errors  []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "multiple errors"
}

// AggregateErrorCause returns the primary (first) error, if any.
func (e *AggregateError) AggregateErrorCause() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap returns the errors slice for multi-error unwrapping (Go 1.20+).
// This enables [errors.Is] and [errors.As] to check against all errors
// in the aggregate.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is implements custom error matching for AggregateError.
// Returns true if target is an AggregateError (regardless of contents).
func (e *AggregateError) Is(target error) bool {
	var aggTarget *AggregateError
	return errors.As(target, &aggTarget)
}

// WrapError wraps an error with a message and cause chain.
// The result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
