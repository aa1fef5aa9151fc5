package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatIngestion  ErrorCategory = "ingestion"  // Document could not be loaded
	ErrCatEvaluation ErrorCategory = "evaluation" // Expert call failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatRateLimit  ErrorCategory = "rate_limit" // API rate limited
	ErrCatState      ErrorCategory = "state"      // Invalid state transition
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
	ErrCatBudget     ErrorCategory = "budget"     // Token or pass budget exceeded
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithRetryable overrides the category's default retryability.
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrIngestion creates an ingestion error. Ingestion failures before any
// window has been dispatched are the only session-fatal errors.
func ErrIngestion(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatIngestion,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrEvaluation creates an evaluation error. Transient by default; the
// dispatcher retries these before marking an expert's questions unresolved.
func ErrEvaluation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatEvaluation,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrInternal creates an internal error. Used for conditions that indicate a
// programming defect, such as an accumulator invariant violation.
func ErrInternal(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrSecondPassBudget creates a budget error for the second pass. Callers
// fall back to first-pass results; the session still completes.
func ErrSecondPassBudget(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatBudget,
		Code:      CodeSecondPassBudget,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeInvalidState       = "INVALID_STATE"
	CodeUnknownQuestion    = "UNKNOWN_QUESTION"
	CodeEvaluatorFailed    = "EVALUATOR_FAILED"
	CodeParseFailed        = "PARSE_FAILED"
	CodeSecondPassBudget   = "SECOND_PASS_BUDGET_EXCEEDED"
	CodeEmptyDocument      = "EMPTY_DOCUMENT"
	CodeInvalidQuestionSet = "INVALID_QUESTION_SET"
	CodeNoExperts          = "NO_EXPERTS"
	CodeStoreFailed        = "STORE_FAILED"
)
