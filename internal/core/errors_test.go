package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudioError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StudioError
		expected string
	}{
		{
			name:     "error with provider",
			err:      &StudioError{Type: ErrorTypeGeneration, Message: "quota exceeded", Provider: "gemini"},
			expected: "[gemini] generation_failed: quota exceeded",
		},
		{
			name:     "error without provider",
			err:      &StudioError{Type: ErrorTypeValidation, Message: MessageNotAnImage},
			expected: "validation_error: Please upload an image file.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestStudioError_Unwrap(t *testing.T) {
	original := errors.New("read: connection reset")
	err := NewEncodingError(original)

	assert.ErrorIs(t, err, original)
	assert.Equal(t, MessageProcessFailed, err.Message)
}

func TestStudioError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *StudioError
		expected int
	}{
		{"explicit status code", &StudioError{Type: ErrorTypeGeneration, StatusCode: http.StatusServiceUnavailable}, http.StatusServiceUnavailable},
		{"validation default", NewValidationError(MessageFileTooLarge), http.StatusUnprocessableEntity},
		{"encoding default", NewEncodingError(nil), http.StatusUnprocessableEntity},
		{"no image default", NewNoImageError("gemini"), http.StatusBadGateway},
		{"generation default", NewGenerationError("gemini", "boom", nil), http.StatusBadGateway},
		{"configuration default", NewConfigurationError(MessageMissingAPIKey), http.StatusInternalServerError},
		{"invalid request", NewInvalidRequestError("bad", nil), http.StatusBadRequest},
		{"not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"conflict", NewConflictError("busy"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatusCode())
		})
	}
}

func TestStudioError_ToJSON(t *testing.T) {
	err := NewConflictError("generation already in progress")

	body := err.ToJSON()
	inner, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ErrorTypeConflict, inner["type"])
	assert.Equal(t, "generation already in progress", inner["message"])
}

func TestNewGenerationError_EmptyMessageFallsBack(t *testing.T) {
	err := NewGenerationError("gemini", "", nil)
	assert.Equal(t, MessageGenerateFailed, err.Message)
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		wantType    ErrorType
		wantMessage string
	}{
		{
			name:        "google error envelope",
			statusCode:  http.StatusTooManyRequests,
			body:        `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantType:    ErrorTypeGeneration,
			wantMessage: "quota exceeded",
		},
		{
			name:        "plain text body",
			statusCode:  http.StatusBadGateway,
			body:        "upstream unavailable",
			wantType:    ErrorTypeGeneration,
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			statusCode:  http.StatusInternalServerError,
			body:        "",
			wantType:    ErrorTypeGeneration,
			wantMessage: "gemini API error (status 500)",
		},
		{
			name:        "rejected credential",
			statusCode:  http.StatusForbidden,
			body:        `{"error":{"message":"API key not valid"}}`,
			wantType:    ErrorTypeConfiguration,
			wantMessage: "API key not valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseProviderError("gemini", tt.statusCode, []byte(tt.body), nil)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantMessage, err.Message)
			assert.Equal(t, "gemini", err.Provider)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "quota exceeded", UserMessage(NewGenerationError("gemini", "quota exceeded", nil)))
	assert.Equal(t, "quota exceeded", UserMessage(fmt.Errorf("attempt 3: %w", NewGenerationError("gemini", "quota exceeded", nil))))
	assert.Equal(t, "dial tcp: refused", UserMessage(errors.New("dial tcp: refused")))
}
