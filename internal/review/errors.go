package review

import (
	"errors"
	"fmt"
)

// Sentinel errors the HTTP layer maps onto status codes. ErrNotFound covers
// both "does not exist" and "not yours": callers must not learn whether an
// assignment exists from the response.
var (
	ErrNotFound     = errors.New("assignment not found")
	ErrLegacyReview = errors.New("review was completed under the legacy scoring model and is read-only")
	ErrDuplicate    = errors.New("assignment already exists for this reviewer and application")
)

// ValidationError carries a field-level message for 400 responses.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
