package shared

import "errors"

// DomainError is a rule violation the HTTP layer can map to a status.
// Code is stable; Message is safe to show a tenant or admin.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Cause is logged, never returned to clients
	Cause error `json:"-"`
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches on Code, so copies made by WithMessage or Wrap still match
// their sentinel under errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	return errors.As(target, &other) && e.Code == other.Code
}

// WithMessage returns a copy with a more specific client-facing message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Cause: e.Cause}
}

// Wrap returns a copy carrying cause for logs.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Cause: cause}
}

// Generic domain errors; the rental package defines the ledger-specific ones.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
