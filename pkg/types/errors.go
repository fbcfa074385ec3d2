package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeMutation   ErrorType = "mutation"
	ErrorTypeOffline    ErrorType = "offline"
	ErrorTypeInternal   ErrorType = "internal"
)

// CarelinkError represents a structured error in the Carelink system
type CarelinkError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CarelinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *CarelinkError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewQueryError creates a new read-path error wrapping the store failure
func NewQueryError(code, message string, cause error) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeQuery,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewMutationError creates a new write-path error wrapping the store failure
func NewMutationError(code, message string, cause error) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeMutation,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewOfflineError creates an error for operations attempted while offline
func NewOfflineError(code, message string) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeOffline,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *CarelinkError {
	return &CarelinkError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeDecisionInFlight  = "DECISION_IN_FLIGHT"
	ErrCodeAlreadyDecided    = "ALREADY_DECIDED"
	ErrCodeQueryFailed       = "QUERY_FAILED"
	ErrCodeMutationFailed    = "MUTATION_FAILED"
	ErrCodeOffline           = "OFFLINE"
	ErrCodeSyncInProgress    = "SYNC_IN_PROGRESS"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)
