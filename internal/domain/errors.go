// Package domain provides the request model and canonical error types for the gateway.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or schema-violating request body.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeUpstreamUnreachable indicates a transport failure reaching a provider.
	ErrorTypeUpstreamUnreachable ErrorType = "upstream_unreachable"

	// ErrorTypeUpstreamError indicates the provider answered with a non-success status.
	ErrorTypeUpstreamError ErrorType = "upstream_error"

	// ErrorTypeStreamTransport indicates a failure while relaying an already-started stream.
	ErrorTypeStreamTransport ErrorType = "stream_transport"

	// ErrorTypeConfiguration indicates the gateway is missing configuration it needs
	// for this request, such as a provider API key.
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// APIError is the canonical error returned by adapters, the dispatcher and the proxy.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// UpstreamStatus is the provider's HTTP status for ErrorTypeUpstreamError.
	UpstreamStatus int `json:"upstream_status,omitempty"`

	// StatusCode overrides the default HTTP status mapping when set.
	StatusCode int `json:"-"`

	// Provider names the upstream the error relates to, if any.
	Provider string `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.UpstreamStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the HTTP status code reported to the client for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUpstreamUnreachable, ErrorTypeUpstreamError, ErrorTypeStreamTransport:
		return http.StatusBadGateway
	case ErrorTypeConfiguration, ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCause records the error that triggered this one.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// WithProvider sets the provider name.
func (e *APIError) WithProvider(name string) *APIError {
	e.Provider = name
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrUpstreamUnreachable creates a transport failure error for a provider call.
func ErrUpstreamUnreachable(provider string, err error) *APIError {
	return NewAPIError(ErrorTypeUpstreamUnreachable, fmt.Sprintf("%s API error: %v", provider, err)).
		WithProvider(provider).
		WithCause(err)
}

// ErrUpstreamError creates an error for a non-success provider status.
// The upstream body is intentionally not part of the error.
func ErrUpstreamError(provider string, status int) *APIError {
	e := NewAPIError(ErrorTypeUpstreamError, fmt.Sprintf("%s API error: %d", provider, status)).
		WithProvider(provider)
	e.UpstreamStatus = status
	return e
}

// ErrStreamTransport creates an error for a failure while relaying a started stream.
func ErrStreamTransport(err error) *APIError {
	return NewAPIError(ErrorTypeStreamTransport, fmt.Sprintf("stream error: %v", err)).WithCause(err)
}

// ErrConfiguration creates a configuration error.
func ErrConfiguration(message string) *APIError {
	return NewAPIError(ErrorTypeConfiguration, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ToAPIError converts any error to an *APIError.
// If the error already is (or wraps) one, it is returned directly.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrServer(err.Error()).WithCause(err)
}
