package portfolio

import "errors"

// ErrHoldingNotFound: the row does not exist or belongs to another user.
var ErrHoldingNotFound = errors.New("holding not found")

// ValidationError carries field-level form errors. Recoverable: it blocks
// the mutation only.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
