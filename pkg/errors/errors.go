package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeSessionStartFailed   ErrorCode = "SESSION_START_FAILED"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeProcessCrashed       ErrorCode = "PROCESS_CRASHED"
	ErrCodeMaxProcessesExceeded ErrorCode = "MAX_PROCESSES_EXCEEDED"
	ErrCodeTokenInvalid         ErrorCode = "TOKEN_INVALID_OR_EXPIRED"
	ErrCodeNotReadyYet          ErrorCode = "NOT_READY_YET"
	ErrCodeSegmentNotFound      ErrorCode = "SEGMENT_NOT_FOUND"
	ErrCodeCameraNotFound       ErrorCode = "CAMERA_NOT_FOUND"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimit            ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors
func NewSessionStartFailedError(err error) *AppError {
	return WrapError(err, ErrCodeSessionStartFailed, "transcoder failed to start", http.StatusBadGateway)
}

func NewProcessCrashedError(err error) *AppError {
	return WrapError(err, ErrCodeProcessCrashed, "transcode process exited unexpectedly", http.StatusBadGateway)
}

func NewSessionNotFoundError(cameraID string) *AppError {
	return NewAppError(ErrCodeSessionNotFound, fmt.Sprintf("no active session for camera %s", cameraID), http.StatusNotFound)
}

func NewMaxProcessesExceededError() *AppError {
	return NewAppError(ErrCodeMaxProcessesExceeded, "transcode capacity reached, try again shortly", http.StatusTooManyRequests)
}

func NewTokenInvalidError(message string) *AppError {
	return NewAppError(ErrCodeTokenInvalid, message, http.StatusUnauthorized)
}

func NewNotReadyYetError() *AppError {
	return NewAppError(ErrCodeNotReadyYet, "stream is starting, retry shortly", http.StatusServiceUnavailable)
}

func NewSegmentNotFoundError(file string) *AppError {
	return NewAppError(ErrCodeSegmentNotFound, fmt.Sprintf("segment %s not found", file), http.StatusNotFound)
}

func NewCameraNotFoundError(cameraID string) *AppError {
	return NewAppError(ErrCodeCameraNotFound, fmt.Sprintf("camera %s not found", cameraID), http.StatusNotFound)
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidationFailed, message, http.StatusBadRequest)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	// Try to unwrap
	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetAppError(u.Unwrap())
	}

	return nil
}
