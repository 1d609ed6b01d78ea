package errors

import (
	"errors"
	"fmt"
)

var (
	// Gateway errors
	ErrInvalidResponse = errors.New("invalid response from server")
	ErrRateLimited     = errors.New("rate limited, try again later")
	ErrDecoding        = errors.New("failed to decode response")
	ErrNetwork         = errors.New("network error")

	// Auth errors
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Store errors
	ErrNotFound = errors.New("not found")

	// Platform errors
	ErrUnknownPlatform = errors.New("unknown platform")

	// Publish errors
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
)

// HTTPError is a non-2xx response the gateway did not recover from.
type HTTPError struct {
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %d", e.Code)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(code int) *HTTPError {
	return &HTTPError{Code: code}
}

// IsHTTPStatus reports whether err carries an HTTPError with the given code.
func IsHTTPStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == code
}

// causeError ties a sentinel kind to the underlying cause so both
// errors.Is(err, kind) and errors.Is(err, cause) hold.
type causeError struct {
	kind  error
	cause error
}

func (e *causeError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.kind, e.cause)
}

func (e *causeError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// NetworkError wraps a transport-level failure.
func NetworkError(cause error) error {
	return &causeError{kind: ErrNetwork, cause: cause}
}

// DecodingError wraps a response body decode failure.
func DecodingError(cause error) error {
	return &causeError{kind: ErrDecoding, cause: cause}
}

// InvalidResponse wraps a response that could not be read.
func InvalidResponse(cause error) error {
	return &causeError{kind: ErrInvalidResponse, cause: cause}
}

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
