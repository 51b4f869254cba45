package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation = "E100"
	CodeStorage    = "E200"
	CodeIncomplete = "E400"
	CodeNoRoles    = "E410"
	CodeLocked     = "E420"
	CodeRateLimit  = "E500"
	CodeInternal   = "E900"
)

// AppError carries both the operator-facing message and the text shown to the user.
// Key names an i18n entry that overrides UserMessage when a translator is available;
// Params are the format arguments for that entry.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Key         string
	Params      []any
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: "❌ The leave duration must be valid.",
		Key:         "errors.invalid_duration",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewEmptyReasonError() *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     "reason is empty",
		UserMessage: "❌ Please provide a reason for the leave.",
		Key:         "errors.empty_reason",
		Severity:    SeverityLow,
	}
}

func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("Storage error: %s", underlyingMsg),
		UserMessage: "❌ An error occurred while processing the interaction.",
		Key:         "errors.internal",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewIncompleteRequestError is returned when a step arrives without the pending data it depends on.
func NewIncompleteRequestError(msg string) *AppError {
	return &AppError{
		Code:        CodeIncomplete,
		Message:     msg,
		UserMessage: "❌ The request data is incomplete.",
		Key:         "errors.incomplete_request",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

// NewUnknownOptionError is returned when a menu value is not one of the offered options.
func NewUnknownOptionError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: "❌ The selected option is not available.",
		Key:         "errors.unknown_option",
		Severity:    SeverityLow,
	}
}

// NewTypeNotSelectedError is returned when a role is picked before a vacation type.
func NewTypeNotSelectedError() *AppError {
	return &AppError{
		Code:        CodeIncomplete,
		Message:     "role selected before vacation type",
		UserMessage: "❌ The vacation type has not been selected yet.",
		Key:         "errors.type_not_selected",
		Severity:    SeverityMedium,
	}
}

func NewNoRolesError(userID string) *AppError {
	return &AppError{
		Code:        CodeNoRoles,
		Message:     fmt.Sprintf("user %s has no assignable roles", userID),
		UserMessage: "❌ You do not have any roles to choose from.",
		Key:         "errors.no_roles",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewLockedError(cause error) *AppError {
	return &AppError{
		Code:        CodeLocked,
		Message:     "user workflow is locked",
		UserMessage: "⏳ Your previous action is still being processed. Please try again.",
		Key:         "errors.locked",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Key:         "errors.rate_limited",
		Params:      []any{retryAfter},
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:        CodeInternal,
		Message:     fmt.Sprintf("internal error: %v", cause),
		UserMessage: "❌ An error occurred while processing the interaction.",
		Key:         "errors.internal",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
