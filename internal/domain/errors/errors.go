package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")

	// one-time code lifecycle
	ErrInvalidCode = errors.New("invalid or expired code")
	ErrCodeExpired = errors.New("code has expired")
	ErrMaxAttempts = errors.New("maximum verification attempts exceeded")
	ErrResendLimit = errors.New("maximum resend attempts exceeded")
	ErrRateLimited = errors.New("too many requests")
	ErrNoSession   = errors.New("no client session")
)

// Error codes returned to API clients
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeValidation    = "VALIDATION_FAILED"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInvalidCode   = "INVALID_CODE"
	CodeCodeExpired   = "CODE_EXPIRED"
	CodeMaxAttempts   = "MAX_ATTEMPTS"
	CodeResendLimit   = "RESEND_LIMIT"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternalError = "INTERNAL_ERROR"
)

// CodeRejectedError is a wrong-code submission that left attempts in the budget
type CodeRejectedError struct {
	RemainingAttempts int
}

func (e *CodeRejectedError) Error() string {
	return fmt.Sprintf("%s (%d attempts remaining)", ErrInvalidCode.Error(), e.RemainingAttempts)
}

func (e *CodeRejectedError) Unwrap() error { return ErrInvalidCode }

// RateLimitError carries how long the caller must wait
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfterSeconds rounds the wait up to whole seconds, never below one
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// AppError represents application error with HTTP status
type AppError struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails attaches extra response fields
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func TooManyRequests(code, message string, err error) *AppError {
	return NewAppError(http.StatusTooManyRequests, code, message, err)
}

// Unprocessable reports field-level validation failures
func Unprocessable(message string, fields map[string]string) *AppError {
	appErr := NewAppError(http.StatusUnprocessableEntity, CodeValidation, message, ErrInvalidInput)
	if len(fields) > 0 {
		appErr.WithDetails(map[string]interface{}{"errors": fields})
	}
	return appErr
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// FieldError is a business-rule validation failure on a single input field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }
