package messagerooms

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Connection errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorUnauthorized

	// Client-side errors
	ErrorInvalidConfig
	ErrorAlreadyConnected

	// Event errors
	ErrorMalformedEvent
	ErrorHandlerFailed
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorAlreadyConnected:
		return "already_connected"
	case ErrorMalformedEvent:
		return "malformed_event"
	case ErrorHandlerFailed:
		return "handler_failed"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ClientError is a structured error with code and context.
type ClientError struct {
	Code    ErrorCode
	Message string
	// EventType is set for errors raised while handling an event.
	EventType string
	Wrapped   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	msg := e.Message
	if e.EventType != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.EventType)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, msg, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ClientError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ClientError with the given code and message.
func NewError(code ErrorCode, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a ClientError.
func WrapError(code ErrorCode, message string, err error) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// MalformedEventError reports an event whose data is not the JSON its
// handler expects.
func MalformedEventError(eventType string, err error) *ClientError {
	return &ClientError{
		Code:      ErrorMalformedEvent,
		Message:   "malformed event data",
		EventType: eventType,
		Wrapped:   err,
	}
}

// CodeOf extracts the error code, or ErrorUnknown for foreign errors.
func CodeOf(err error) ErrorCode {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorUnknown
}

// IsMalformedEvent reports whether err was caused by undecodable event data.
func IsMalformedEvent(err error) bool {
	return err != nil && CodeOf(err) == ErrorMalformedEvent
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrorConnection, ErrorDisconnected, ErrorTimeout, ErrorUnauthorized:
		return true
	default:
		return false
	}
}
