package matching

import (
	"errors"
	"fmt"
)

// ErrRecomputeInProgress is returned when another instance holds the recompute lock.
var ErrRecomputeInProgress = errors.New("a history recompute is already running")

// ValidationError rejects a malformed matching request. It is a client error and is not retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
