package errs

import (
	"errors"
	"fmt"
)

// Error kinds shared across the domain packages. Domain code wraps these
// with fmt.Errorf("%w: ...") so callers can classify with errors.Is/As
// without depending on the package that raised the error.
var (
	// ErrNotFound covers missing entities and entities owned by another
	// user. The two cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for illegal order status changes.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports malformed or out-of-range input, naming the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError wraps a storage/transaction failure. The wrapped error
// carries driver detail for logs; the HTTP layer must never echo it to
// clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for operation op.
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
