package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

// AppError is the error type returned across the HTTP boundary
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_INTERNAL,
		Message:   "Internal server error",
		Timestamp: time.Now(),
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode:  http.StatusBadRequest,
		Code:      ErrorCode_INVALID_ARGUMENT,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode:  http.StatusBadRequest,
		Code:      ErrorCode_INVALID_PAYLOAD,
		Message:   "Invalid payload",
		Timestamp: time.Now(),
	}
}

// Session Errors
func ErrDeviceUnavailable(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusServiceUnavailable,
		Code:      ErrorCode_SESSION_DEVICE_UNAVAILABLE,
		Message:   "Microphone is unavailable",
		Timestamp: time.Now(),
	}
}

func ErrConnectionFailed(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusBadGateway,
		Code:      ErrorCode_SESSION_CONNECTION_FAILED,
		Message:   "Streaming backend connection failed",
		Timestamp: time.Now(),
	}
}

func ErrSummarizationFailed(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusBadGateway,
		Code:      ErrorCode_SESSION_SUMMARIZATION_FAILED,
		Message:   "Failed to generate meeting minutes",
		Timestamp: time.Now(),
	}
}

func ErrTimeout(operation string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusGatewayTimeout,
		Code:      ErrorCode_SESSION_TIMEOUT,
		Message:   fmt.Sprintf("Operation timed out: %s", operation),
		Timestamp: time.Now(),
	}.WithDetail("operation", operation)
}

func ErrAbandoned(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusConflict,
		Code:      ErrorCode_SESSION_ABANDONED,
		Message:   "Operation was superseded by a newer session action",
		Timestamp: time.Now(),
	}
}

// FromDomain maps a domain error to its AppError. Errors that already are
// AppErrors pass through unchanged.
func FromDomain(operation string, err error) AppError {
	var appErr AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, entities.ErrAbandoned):
		return ErrAbandoned(err)
	case stdErrors.Is(err, entities.ErrTimeout):
		return ErrTimeout(operation, err)
	case stdErrors.Is(err, entities.ErrDeviceUnavailable):
		return ErrDeviceUnavailable(err)
	case stdErrors.Is(err, entities.ErrConnection):
		return ErrConnectionFailed(err)
	case stdErrors.Is(err, entities.ErrSummarization):
		return ErrSummarizationFailed(err)
	}
	return ErrInternal(err)
}
