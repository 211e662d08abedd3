package qr

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidArgumentError reports that a custom-call site couldn't be expanded because its operand
// shape doesn't satisfy the expander's preconditions (rank, matrix dimensions, or block size). The offending
// node is left untouched by the caller; this is not a bug in the expander itself.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

func invalidArgument(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// InternalError wraps a failure that happened while the expander was already committed to
// building a sub-program for a shape it had accepted as valid: a bug in the expansion itself, not
// a bad input.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error { return e.Cause }

// internalError builds an InternalError whose Cause carries a stack trace captured at the wrap
// site, via pkg/errors, so the recovered panic's origin survives past the sub-builder boundary.
func internalError(cause error, format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}
