package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError(ErrCodeInvalidInput, "bad input", nil)
	assert.Equal(t, "INVALID_INPUT: bad input", err.Error())

	cause := fmt.Errorf("underlying failure")
	wrapped := NewArtifactError(ErrCodeArtifactSchema, "malformed document", cause)
	assert.Contains(t, wrapped.Error(), "ARTIFACT_SCHEMA_INVALID")
	assert.Contains(t, wrapped.Error(), "underlying failure")
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestAppError_HTTPStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		NewValidationError(ErrCodeMissingField, "missing", nil).GetHTTPStatusCode())
	assert.Equal(t, http.StatusNotFound,
		NewNotFoundError(ErrCodeArtifactNotFound, "gone", nil).GetHTTPStatusCode())
	assert.Equal(t, http.StatusRequestTimeout,
		NewTimeoutError(ErrCodeRecommenderTimeout, "slow", nil).GetHTTPStatusCode())
	assert.Equal(t, http.StatusBadGateway,
		NewExternalServiceError(ErrCodeRecommenderFailed, "down", nil).GetHTTPStatusCode())
	assert.Equal(t, http.StatusInternalServerError,
		NewInternalError(ErrCodeConfigurationError, "broken", nil).GetHTTPStatusCode())
}

func TestAppError_Retryable(t *testing.T) {
	assert.False(t, NewValidationError(ErrCodeInvalidInput, "bad", nil).IsRetryable())
	assert.False(t, NewArtifactError(ErrCodeArtifactSchema, "bad", nil).IsRetryable())
	assert.True(t, NewExternalServiceError(ErrCodeRecommenderFailed, "down", nil).IsRetryable())
	assert.True(t, NewTimeoutError(ErrCodeRecommenderTimeout, "slow", nil).IsRetryable())
	assert.True(t, NewDatabaseError(ErrCodeDatabaseQuery, "failed", nil).IsRetryable())
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(NewValidationError(ErrCodeInvalidInput, "bad", nil))
	require.True(t, ok)
	assert.Equal(t, ErrTypeValidation, appErr.Type)

	_, ok = AsAppError(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrTypeInternal, ErrCodeSerializationError, "ignored"))

	// Wrapping an AppError returns it unchanged
	original := NewValidationError(ErrCodeInvalidInput, "bad", nil)
	assert.Same(t, original, WrapError(original, ErrTypeInternal, "OTHER", "other"))

	wrapped := WrapError(fmt.Errorf("boom"), ErrTypeExternal, ErrCodeRecommenderFailed, "call failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrTypeExternal, wrapped.Type)
	assert.True(t, wrapped.IsRetryable())
}
