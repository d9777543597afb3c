package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidPayload,
		Message: "Invalid data",
	}
	assert.Equal(t, "validation_invalid_payload: Invalid data", appErr.Error())

	wrapped := NewAppError(ErrCodeInternalPersistence, "insert failed", errors.New("connection refused"))
	assert.Equal(t, "internal_persistence_error: insert failed: connection refused", wrapped.Error())
}

func TestAppError_UnwrapAndAs(t *testing.T) {
	sentinel := errors.New("sentinel")
	appErr := ErrPersistence("failed to insert reading", sentinel)

	assert.True(t, errors.Is(appErr, sentinel))

	chain := fmt.Errorf("handler: %w", appErr)
	var target *AppError
	require.True(t, errors.As(chain, &target))
	assert.Equal(t, ErrCodeInternalPersistence, target.Code)
}

func TestAppError_Cause(t *testing.T) {
	assert.Equal(t, "connection refused",
		ErrPersistence("failed to insert reading", errors.New("connection refused")).Cause())
	assert.Equal(t, "Invalid data", ErrInvalidPayload(nil).Cause())
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidPayload, http.StatusBadRequest},
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeNotFoundSession, http.StatusNotFound},
		{ErrCodeNotFoundRender, http.StatusServiceUnavailable},
		{ErrCodeInternalPersistence, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrCodeUpstreamCollaborator, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
			assert.Equal(t, tt.want, NewAppError(tt.code, "x", nil).HTTPStatus())
		})
	}
}

func TestAppError_WithDetailsDoesNotMutate(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeValidationInvalidPayload, "Invalid data", nil,
		map[string]any{"field": "temperature"})

	extended := original.WithDetails(map[string]any{"reason": "missing"})

	assert.Len(t, original.Details, 1)
	assert.Equal(t, "temperature", extended.Details["field"])
	assert.Equal(t, "missing", extended.Details["reason"])
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("cycle aborted: %w", ErrCollaborator("etl failed", errors.New("timeout")))

	assert.True(t, HasCode(err, ErrCodeUpstreamCollaborator))
	assert.False(t, HasCode(err, ErrCodeInternalPersistence))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeUpstreamCollaborator))
	assert.False(t, HasCode(nil, ErrCodeUpstreamCollaborator))
}
