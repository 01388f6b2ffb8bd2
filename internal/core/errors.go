// Package core provides the shared types, interfaces and errors of the creative studio.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeValidation indicates a rejected upload (size or content type)
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeEncoding indicates the upload could not be read or encoded
	ErrorTypeEncoding ErrorType = "encoding_error"
	// ErrorTypeNoImage indicates the model answered without image data
	ErrorTypeNoImage ErrorType = "no_image_produced"
	// ErrorTypeGeneration indicates a transport or service failure during generation
	ErrorTypeGeneration ErrorType = "generation_failed"
	// ErrorTypeConfiguration indicates missing or invalid configuration, such as the API key
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeNotFound indicates a not found error (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeConflict indicates the request cannot run in the current state (409)
	ErrorTypeConflict ErrorType = "conflict_error"
)

// User-facing messages surfaced by the studio.
const (
	MessageFileTooLarge    = "File too large. Max 10MB."
	MessageNotAnImage      = "Please upload an image file."
	MessageProcessFailed   = "Failed to process image. Try another file."
	MessageNoImage         = "No image generated from Gemini."
	MessageGenerateFailed  = "Failed to generate ad creative."
	MessageMissingAPIKey   = "GEMINI_API_KEY is not set"
	MessageUnexpectedError = "An unexpected error occurred. Please check your inputs and try again."
)

// StudioError is the base error type for all studio errors
type StudioError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *StudioError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *StudioError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *StudioError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeEncoding:
		return http.StatusUnprocessableEntity
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNoImage, ErrorTypeGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *StudioError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewValidationError creates an upload validation error
func NewValidationError(message string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewEncodingError creates an upload read/encode error
func NewEncodingError(err error) *StudioError {
	return &StudioError{
		Type:    ErrorTypeEncoding,
		Message: MessageProcessFailed,
		Err:     err,
	}
}

// NewNoImageError creates the error returned when the model produced no image part
func NewNoImageError(provider string) *StudioError {
	return &StudioError{
		Type:     ErrorTypeNoImage,
		Message:  MessageNoImage,
		Provider: provider,
	}
}

// NewGenerationError creates a generation failure carrying the upstream message.
// An empty message falls back to a generic one.
func NewGenerationError(provider string, message string, err error) *StudioError {
	if message == "" {
		message = MessageGenerateFailed
	}
	return &StudioError{
		Type:     ErrorTypeGeneration,
		Message:  message,
		Provider: provider,
		Err:      err,
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *StudioError {
	return &StudioError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *StudioError {
	return &StudioError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *StudioError {
	return &StudioError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error (409)
func NewConflictError(message string) *StudioError {
	return &StudioError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// ParseProviderError parses an error response body from the model API and returns
// a generation error carrying the service's own message when one is present.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *StudioError {
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		message = errorResponse.Error.Message
	}
	if message == "" {
		message = fmt.Sprintf("%s API error (status %d)", provider, statusCode)
	}

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		e := NewGenerationError(provider, message, originalErr)
		e.Type = ErrorTypeConfiguration
		return e
	}
	return NewGenerationError(provider, message, originalErr)
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var studioErr *StudioError
	if errors.As(err, &studioErr) {
		return studioErr.Message
	}
	return err.Error()
}
