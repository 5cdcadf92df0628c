package common

import (
	"errors"
	"fmt"
)

// Failure kinds shared by every yield module. Callers wrap them with context
// using fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrUnauthorized   = errors.New("missing required authority")
	ErrValidation     = errors.New("invalid argument")
	ErrNotFound       = errors.New("no such record")
	ErrNotInitialized = errors.New("is not initialized")
	ErrInvalidState   = errors.New("invalid state")
	ErrUnimplemented  = errors.New("not implemented")
	ErrOverflow       = errors.New("arithmetic overflow")
)

// Kind is the tag reported to callers of the action surface.
type Kind string

const (
	KindUnauthorized  Kind = "authorization"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindState         Kind = "state"
	KindUnimplemented Kind = "unimplemented"
	KindOverflow      Kind = "overflow"
	KindInternal      Kind = "internal"
)

// KindOf maps an error onto its failure kind. Errors outside the taxonomy are
// reported as internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrInvalidState), errors.Is(err, ErrModulePaused):
		return KindState
	case errors.Is(err, ErrUnimplemented):
		return KindUnimplemented
	case errors.Is(err, ErrOverflow):
		return KindOverflow
	default:
		return KindInternal
	}
}

// Invalid builds a validation failure with a formatted message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Missing builds a not-found failure for the named record.
func Missing(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}

// Uninitialized builds the state failure raised before a module's init action
// has run.
func Uninitialized(module string) error {
	return fmt.Errorf("%s %w", module, ErrNotInitialized)
}
