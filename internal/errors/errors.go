// Package errors defines the error taxonomy of the blockifier. Every error
// that leaves the lifecycle controller is an *AppError carrying one of the
// codes below.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeUnsupportedMedia indicates the declared media type is not accepted.
	ErrCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
	// ErrCodeMissingJobToken indicates a status check without a job identifier.
	ErrCodeMissingJobToken ErrorCode = "MISSING_JOB_TOKEN"
	// ErrCodeSchedulingFailed indicates the job could not be submitted.
	ErrCodeSchedulingFailed ErrorCode = "SCHEDULING_FAILED"
	// ErrCodeBackendRejected indicates the backend explicitly signaled failure.
	ErrCodeBackendRejected ErrorCode = "BACKEND_REJECTED"
	// ErrCodeBackendUnavailable indicates a transport or protocol failure.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ErrCodeInvalidConfig indicates construction-time misconfiguration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidRequest indicates an inbound request that could not be read.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnauthorized indicates a missing or invalid bearer token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// TransientPrefix marks backend failures that are expected to clear on their own.
const TransientPrefix = "server error:"

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrorResponse is the JSON body sent to callers.
type ErrorResponse struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts the error into its JSON body.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
}

// UnsupportedMedia creates an error for a media type outside the accepted set.
func UnsupportedMedia(mimeType string, accepted []string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedMedia,
		Message: fmt.Sprintf("Unsupported mimeType %q. The following mimeTypes are supported: %s",
			mimeType, strings.Join(accepted, ", ")),
		HTTPStatus: http.StatusUnsupportedMediaType,
		Details:    map[string]any{"mime_type": mimeType},
	}
}

// MissingJobToken creates an error for a status check without a job identifier.
func MissingJobToken() *AppError {
	return &AppError{
		Code:       ErrCodeMissingJobToken,
		Message:    "Status check requests must provide a valid 'transcription_id'.",
		HTTPStatus: http.StatusBadRequest,
	}
}

// SchedulingFailed creates an error for a submission the backend never accepted.
func SchedulingFailed(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeSchedulingFailed,
		Message:    fmt.Sprintf("could not schedule work: %v", cause),
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// BackendRejected creates an error for a response whose body signals failure.
func BackendRejected(message string) *AppError {
	return &AppError{
		Code:       ErrCodeBackendRejected,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
	}
}

// BackendUnavailable creates an error for a failed transport call. Messages
// starting with TransientPrefix are marked retryable.
func BackendUnavailable(message string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeBackendUnavailable,
		Message:    message,
		Retryable:  hasTransientPrefix(message),
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// ServerError creates a transient BackendUnavailable error.
func ServerError(format string, args ...any) *AppError {
	return BackendUnavailable(TransientPrefix+" "+fmt.Sprintf(format, args...), nil)
}

// InvalidConfig creates an error for a misconfigured component.
func InvalidConfig(reason string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidConfig,
		Message:    reason,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// InvalidRequest creates an error for a request body that could not be read.
func InvalidRequest(reason string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidRequest,
		Message:    reason,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(reason string) *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Internal wraps an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// As returns err as an *AppError when it is one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an *AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Message returns the human-readable part of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// IsTransient reports whether a backend failure should be retried on the next
// status check instead of failing the job.
//
// The decision is a match on the vendor's "server error:" message prefix.
// A structured backend error code would be a better signal once one exists.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := As(err); ok && appErr.Code != ErrCodeBackendUnavailable && appErr.Code != ErrCodeBackendRejected {
		return false
	}
	return hasTransientPrefix(Message(err))
}

func hasTransientPrefix(msg string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(msg)), TransientPrefix)
}
