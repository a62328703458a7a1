// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors so the API boundary can map them
// to HTTP statuses without string matching.
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation_error"
	ErrorTypeMissingPrerequisite ErrorType = "missing_prerequisite"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeGone                ErrorType = "gone"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeUpstream            ErrorType = "upstream_failure"
	ErrorTypeParseFailure        ErrorType = "parse_failure"
)

// AppError carries a typed error with an optional remediation hint. Details
// is user-facing ("generate the script breakdown first"), not diagnostic.
type AppError struct {
	Type    ErrorType
	Message string
	Details string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError of the given type.
func New(errType ErrorType, message string) *AppError {
	return &AppError{Type: errType, Message: message}
}

// NewValidationError reports a malformed request body.
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewMissingPrerequisite reports an absent upstream artifact. The details
// string names which stage to run first.
func NewMissingPrerequisite(message, details string) *AppError {
	return &AppError{Type: ErrorTypeMissingPrerequisite, Message: message, Details: details}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewGoneError reports a resource that existed but is revoked or expired.
// Deliberately distinct from NotFound so clients can render "link expired"
// rather than "link invalid".
func NewGoneError(message string) *AppError {
	return &AppError{Type: ErrorTypeGone, Message: message}
}

// NewUnauthorizedError reports a caller lacking rights over the resource.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// NewUpstreamError wraps a provider failure, preserving the provider's
// message for diagnosability.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeUpstream, Message: message, Err: err}
}

// NewParseFailure reports unparseable model output. Kept distinct from
// upstream failures: clients retry an upstream failure immediately, but a
// parse failure means the prompt itself should be regenerated.
func NewParseFailure(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeParseFailure, Message: message, Err: err}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUpstream if err is not an
// AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUpstream
}

// As unwraps err into an *AppError when possible.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsValidationError(err error) bool          { return TypeOf(err) == ErrorTypeValidation }
func IsMissingPrerequisiteError(err error) bool { return TypeOf(err) == ErrorTypeMissingPrerequisite }
func IsNotFoundError(err error) bool            { return TypeOf(err) == ErrorTypeNotFound }
func IsGoneError(err error) bool                { return TypeOf(err) == ErrorTypeGone }
func IsUnauthorizedError(err error) bool        { return TypeOf(err) == ErrorTypeUnauthorized }
func IsParseFailure(err error) bool             { return TypeOf(err) == ErrorTypeParseFailure }

// Wrap annotates err with a message, preserving an existing AppError type.
func Wrap(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Details: appErr.Details,
			Err:     appErr,
		}
	}

	return &AppError{Type: errType, Message: message, Err: err}
}
