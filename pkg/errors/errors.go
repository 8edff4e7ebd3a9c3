// Package errors defines the error taxonomy used across the gateway.
//
// Every subsystem boundary translates foreign failures into one of the
// types below; raw causes are carried for logging but never cross a
// boundary as the primary classification.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types
const (
	// ErrValidation is returned when an input is rejected (bad auth
	// combination, unknown agent kind, over-size frame, malformed JSON)
	ErrValidation = "validation"

	// ErrAdmission is returned when a limit refuses new work (session
	// cap reached, rate limit exceeded)
	ErrAdmission = "admission"

	// ErrResource is returned when a referenced resource is unusable
	// (credential not found, worktree creation failed, workspace missing)
	ErrResource = "resource"

	// ErrBackend is returned when an agent backend reports a failure
	ErrBackend = "backend"

	// ErrTransition is returned when a command is illegal for the
	// session's current state
	ErrTransition = "transition"

	// ErrTransport is returned when a client connection misbehaves
	// (slow consumer, peer reset)
	ErrTransport = "transport"

	// ErrFatal is returned when the process cannot safely continue
	// (store corruption, migration failure, vault tampering)
	ErrFatal = "fatal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *Error {
	return NewError(ErrValidation, message, cause)
}

// NewAdmissionError creates a new admission error
func NewAdmissionError(message string, cause error) *Error {
	return NewError(ErrAdmission, message, cause)
}

// NewResourceError creates a new resource error
func NewResourceError(message string, cause error) *Error {
	return NewError(ErrResource, message, cause)
}

// NewBackendError creates a new backend error
func NewBackendError(message string, cause error) *Error {
	return NewError(ErrBackend, message, cause)
}

// NewTransitionError creates a new transition error
func NewTransitionError(message string, cause error) *Error {
	return NewError(ErrTransition, message, cause)
}

// NewTransportError creates a new transport error
func NewTransportError(message string, cause error) *Error {
	return NewError(ErrTransport, message, cause)
}

// NewFatalError creates a new fatal error
func NewFatalError(message string, cause error) *Error {
	return NewError(ErrFatal, message, cause)
}

// TypeOf returns the taxonomy type of err, or the empty string when err is
// not an *Error anywhere in its chain.
func TypeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType checks whether err carries the given taxonomy type.
func IsType(err error, errorType string) bool {
	return TypeOf(err) == errorType
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrValidation)
}

// IsAdmission checks if the error is an admission error
func IsAdmission(err error) bool {
	return IsType(err, ErrAdmission)
}

// IsResource checks if the error is a resource error
func IsResource(err error) bool {
	return IsType(err, ErrResource)
}

// IsBackend checks if the error is a backend error
func IsBackend(err error) bool {
	return IsType(err, ErrBackend)
}

// IsTransition checks if the error is a transition error
func IsTransition(err error) bool {
	return IsType(err, ErrTransition)
}

// IsTransport checks if the error is a transport error
func IsTransport(err error) bool {
	return IsType(err, ErrTransport)
}

// IsFatal checks if the error is a fatal error
func IsFatal(err error) bool {
	return IsType(err, ErrFatal)
}

// Code maps an error to the HTTP status the API surfaces for it.
// Unclassified errors map to 500.
func Code(err error) int {
	switch TypeOf(err) {
	case ErrValidation, ErrResource:
		return http.StatusBadRequest
	case ErrAdmission:
		return http.StatusTooManyRequests
	case ErrTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
