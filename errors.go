package cofoundry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeBusinessRule     ErrorType = "business_rule"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypePermissionDenied ErrorType = "permission_denied"
	ErrorTypeInternal         ErrorType = "internal"
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the error returned by every custom entity query and command
// handler. Type selects the taxonomy kind; callers branch on it with the
// Is* helpers below.
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fields  []FieldError   `json:"fields,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case len(e.Fields) == 1:
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Fields[0].Field, e.Fields[0].Message)
	case len(e.Fields) > 1:
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("[%s:%s] %s (%s)", e.Type, e.Code, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField appends a field-level message
func (e *Error) WithField(field, message string) *Error {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// Error codes
const (
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeDefinitionNotFound     = "DEFINITION_NOT_FOUND"
	ErrCodeEntityNotFound         = "ENTITY_NOT_FOUND"
	ErrCodeVersionNotFound        = "VERSION_NOT_FOUND"
	ErrCodePageBlockNotFound      = "PAGE_BLOCK_NOT_FOUND"
	ErrCodeRoutingRuleNotFound    = "ROUTING_RULE_NOT_FOUND"
	ErrCodePermissionDenied       = "PERMISSION_DENIED"
	ErrCodeNoPublishedVersion     = "NO_PUBLISHED_VERSION"
	ErrCodeDraftAlreadyExists     = "DRAFT_ALREADY_EXISTS"
	ErrCodeAlreadyPublished       = "ALREADY_PUBLISHED"
	ErrCodeVersionNotDraft        = "VERSION_NOT_DRAFT"
	ErrCodeOnlyVersion            = "ONLY_VERSION"
	ErrCodeOrderingNotSupported   = "ORDERING_NOT_SUPPORTED"
	ErrCodeUrlSlugNotUnique       = "URL_SLUG_NOT_UNIQUE"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeInvalidDataModelSchema = "INVALID_DATA_MODEL_SCHEMA"
)

// ============================================================================
// Constructors
// ============================================================================

// NewError creates an error of the given type
func NewError(errorType ErrorType, code, message string) *Error {
	return &Error{Type: errorType, Code: code, Message: message}
}

// NewValidationError creates a validation error for one field. Further fields
// can be added with WithField.
func NewValidationError(field, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// NewBusinessRuleViolation creates an error for a request that is well formed
// but conflicts with current state.
func NewBusinessRuleViolation(code, message string) *Error {
	return &Error{Type: ErrorTypeBusinessRule, Code: code, Message: message}
}

// NewNotFoundError creates an error for an absent referent.
func NewNotFoundError(code string, format string, args ...any) *Error {
	return &Error{Type: ErrorTypeNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewPermissionDeniedError creates an error for a missing permission.
func NewPermissionDeniedError(permission string) *Error {
	return &Error{
		Type:    ErrorTypePermissionDenied,
		Code:    ErrCodePermissionDenied,
		Message: "permission denied: " + permission,
		Details: map[string]any{"permission": permission},
	}
}

// NewInternalError wraps an unexpected store or encoding failure.
func NewInternalError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeInternal, Code: ErrCodeInternalError, Message: message, Cause: cause}
}

// ValidationErrors accumulates field errors before returning them as one
// validation error.
type ValidationErrors struct {
	fields []FieldError
}

// Add records a field error
func (ve *ValidationErrors) Add(field, message string) {
	ve.fields = append(ve.fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field error was recorded
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.fields) > 0
}

// ToError returns nil when empty, otherwise a validation *Error.
func (ve *ValidationErrors) ToError() error {
	if !ve.HasErrors() {
		return nil
	}
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: "validation failed",
		Fields:  append([]FieldError(nil), ve.fields...),
	}
}

// ============================================================================
// Error checking utilities
// ============================================================================

func errorType(err error) (ErrorType, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target.Type, true
	}
	return "", false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeValidation
}

// IsBusinessRuleViolation checks if an error is a business rule violation
func IsBusinessRuleViolation(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeBusinessRule
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeNotFound
}

// IsPermissionDeniedError checks if an error is a permission denied error
func IsPermissionDeniedError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypePermissionDenied
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeInternal
}

// FieldErrors returns the field errors carried by err, if any.
func FieldErrors(err error) []FieldError {
	var target *Error
	if errors.As(err, &target) {
		return target.Fields
	}
	return nil
}
