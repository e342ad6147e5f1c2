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

// Common domain error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeAlreadyExists         = "ALREADY_EXISTS"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeRetrievalUnavailable  = "RETRIEVAL_UNAVAILABLE"
	ErrCodeRetrievalInsufficient = "RETRIEVAL_INSUFFICIENT"
	ErrCodePromptTooLarge        = "PROMPT_TOO_LARGE"
	ErrCodeGenerationFailed      = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrInvalidContentType   = NewDomainError(ErrCodeValidation, "invalid content type")
	ErrInvalidContentStatus = NewDomainError(ErrCodeValidation, "invalid content status")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid role")
	ErrInvalidVerdict       = NewDomainError(ErrCodeValidation, "invalid audit verdict")
	ErrFeedbackRequired     = NewDomainError(ErrCodeValidation, "feedback is required to reject content")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrBrandNotFound        = NewDomainError(ErrCodeNotFound, "brand not found")
	ErrManualNotFound       = NewDomainError(ErrCodeNotFound, "brand manual not found")
	ErrContentPieceNotFound = NewDomainError(ErrCodeNotFound, "content piece not found")
	ErrPrincipalNotFound    = NewDomainError(ErrCodeNotFound, "principal not found")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrBrandAlreadyExists     = NewDomainError(ErrCodeAlreadyExists, "brand already exists")
	ErrPrincipalAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "principal already exists")
	ErrAPIKeyAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrForbidden     = NewDomainError(ErrCodeForbidden, "operation not permitted for role")
)

// Lifecycle errors
var (
	ErrContentNotPending = NewDomainError(ErrCodeInvalidTransition, "content piece is not pending")
)

// Pipeline errors
var (
	ErrRetrievalUnavailable  = NewDomainError(ErrCodeRetrievalUnavailable, "retrieval backend unavailable")
	ErrRetrievalInsufficient = NewDomainError(ErrCodeRetrievalInsufficient, "not enough manual context retrieved")
	ErrPromptTooLarge        = NewDomainError(ErrCodePromptTooLarge, "brand rules and brief exceed the prompt budget")
)
