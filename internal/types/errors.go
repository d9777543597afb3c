package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidPayload ErrorCode = "validation_invalid_payload"
	ErrCodeValidationInvalidJSON    ErrorCode = "validation_invalid_json"

	// Not Found (404)
	ErrCodeNotFoundSession ErrorCode = "not_found_session"
	ErrCodeNotFoundRender  ErrorCode = "not_found_render_state"

	// Internal/Upstream (500/502/503)
	ErrCodeInternalPersistence  ErrorCode = "internal_persistence_error"
	ErrCodeInternalUnexpected   ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamCollaborator ErrorCode = "upstream_collaborator_error"
	ErrCodeUpstreamUnavailable  ErrorCode = "upstream_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeNotFoundRender):
		return http.StatusServiceUnavailable // 503
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case s == string(ErrCodeUpstreamUnavailable):
		return http.StatusServiceUnavailable // 503
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the platform.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Cause returns the description of the wrapped error, falling back to the
// message when nothing is wrapped.
func (e *AppError) Cause() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// ErrInvalidPayload is returned when a reading submission lacks a required field.
func ErrInvalidPayload(err error) *AppError {
	return NewAppError(ErrCodeValidationInvalidPayload, "Invalid data", err)
}

// ErrPersistence wraps a store failure.
func ErrPersistence(message string, err error) *AppError {
	return NewAppError(ErrCodeInternalPersistence, message, err)
}

// ErrCollaborator wraps an ETL or recommendation collaborator failure.
func ErrCollaborator(message string, err error) *AppError {
	return NewAppError(ErrCodeUpstreamCollaborator, message, err)
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
