package cofoundry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("title", "required"), IsValidationError},
		{"business rule", NewBusinessRuleViolation(ErrCodeDraftAlreadyExists, "draft exists"), IsBusinessRuleViolation},
		{"not found", NewNotFoundError(ErrCodeEntityNotFound, "entity %d not found", 4), IsNotFoundError},
		{"permission", NewPermissionDeniedError("BLGPST:update"), IsPermissionDeniedError},
		{"internal", NewInternalError("store failed", errors.New("io")), IsInternalError},
	}
	predicates := []func(error) bool{IsValidationError, IsBusinessRuleViolation, IsNotFoundError, IsPermissionDeniedError, IsInternalError}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(wrapped))

			matches := 0
			for _, p := range predicates {
				if p(tt.err) {
					matches++
				}
			}
			assert.Equal(t, 1, matches, "kinds must be distinct")
		})
	}

	assert.False(t, IsNotFoundError(errors.New("plain")))
	assert.False(t, IsValidationError(nil))
}

func TestValidationErrorsAccumulate(t *testing.T) {
	var ve ValidationErrors
	assert.NoError(t, ve.ToError())

	ve.Add("title", "required")
	ve.Add("urlSlug", "invalid format")
	err := ve.ToError()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, []FieldError{{"title", "required"}, {"urlSlug", "invalid format"}}, FieldErrors(err))
	assert.Contains(t, err.Error(), "title: required; urlSlug: invalid format")
}

func TestErrorMessageAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError("load entity", cause).WithDetail("id", 3)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[internal:INTERNAL_ERROR] load entity", err.Error())
	assert.Equal(t, 3, err.Details["id"])

	single := NewValidationError("title", "required")
	assert.Equal(t, "[validation:VALIDATION_FAILED] field 'title': required", single.Error())
}
