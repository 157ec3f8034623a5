package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so a sentinel still matches after it has been wrapped with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of a sentinel error carrying the given cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrInvalidFeedback      = NewDomainError(ErrCodeValidation, "invalid feedback type")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid turn role")
	ErrInvalidDateRange     = NewDomainError(ErrCodeValidation, "date range start is after its end")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "chat session not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Collaborator errors abort the current turn; nothing is retried.
var (
	ErrSearchUnavailable   = NewDomainError(ErrCodeUnavailable, "search service unavailable")
	ErrCompletionFailed    = NewDomainError(ErrCodeUnavailable, "completion service failed")
	ErrStoreUnavailable    = NewDomainError(ErrCodeUnavailable, "transcript store unavailable")
	ErrStorageNotAvailable = NewDomainError(ErrCodeInvalidOperation, "document storage not configured")
)
