package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by the service layer and the HTTP binding.
const (
	KindValidation      = "VALIDATION_ERROR"
	KindUnauthenticated = "UNAUTHENTICATED"
	KindForbidden       = "FORBIDDEN"
	KindNotFound        = "NOT_FOUND"
	KindInternal        = "INTERNAL_ERROR"
)

// AppError is the error type returned by every service operation.
type AppError struct {
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports caller-correctable input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewUnauthenticatedError reports a missing principal.
func NewUnauthenticatedError() *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: "authentication required"}
}

// NewForbiddenError reports that the actor has no rights over the resource.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NewNotFoundError reports a missing or already deleted resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

// NewInternalError wraps a persistence or storage failure. The message is
// always generic; the cause is only reachable through Unwrap.
func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of an AppError in err's chain, or KindInternal
// for any other error.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	return err != nil && KindOf(err) == kind
}
