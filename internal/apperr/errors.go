package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized  = errors.New("Unauthorized")
	ErrAdminRequired = errors.New("Admin access required")
	ErrNotFound      = errors.New("not found")
)

// ValidationError reports a record field that violates a constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a write rejected by a uniqueness index.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s already exists", e.Field)
	}
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// Status maps an error onto the HTTP status the caller should see.
func Status(err error) int {
	var validationErr *ValidationError
	var conflictErr *ConflictError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAdminRequired):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Field returns the offending field of a validation or conflict error.
func Field(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Field
	}
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Field
	}
	return ""
}
