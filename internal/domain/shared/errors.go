package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	retryable bool
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code, so a specialised or wrapped error still
// satisfies errors.Is against the package-level sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may retry the operation unchanged
func (e *DomainError) Retryable() bool {
	return e.retryable
}

// Wrap returns a copy of the error carrying cause
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableDomainError creates a domain error the caller may retry
func NewRetryableDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		retryable: true,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrValidation      = NewDomainError("VALIDATION_ERROR", "Validation failed")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrCrossOwnership  = NewDomainError("CROSS_OWNERSHIP", "Referenced entity belongs to another aggregate")
	ErrInvalidQuantity = NewDomainError("INVALID_QUANTITY", "Quantity is out of range")
	ErrStoreFailure    = NewRetryableDomainError("STORE_FAILURE", "Ledger store unavailable")
	ErrExportFailed    = NewDomainError("EXPORT_FAILED", "Export failed")
)

// AsDomainError extracts a *DomainError from err's chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable reports whether err (or anything it wraps) is a retryable domain error
func IsRetryable(err error) bool {
	de, ok := AsDomainError(err)
	return ok && de.Retryable()
}
