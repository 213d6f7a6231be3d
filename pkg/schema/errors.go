package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers a missing subscriber, a missing path and an unknown owner.
	ErrNotFound = errors.New("not found")

	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrValidation is the cause of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorizedScope names the ownership boundary. It is never returned:
	// listing sets outside the caller's scope are filtered silently so that a
	// foreign id is indistinguishable from an unknown one.
	ErrUnauthorizedScope = errors.New("listing set outside caller scope")
)

// ValidationError describes malformed input. Row is 1-based and zero when the
// error is not tied to an ingestion row.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
