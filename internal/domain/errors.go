package domain

import (
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrValidation        = "VALIDATION_ERROR"
	ErrEncoding          = "ENCODING_ERROR"
	ErrPredictionService = "PREDICTION_SERVICE_ERROR"
	ErrMalformedResult   = "MALFORMED_RESULT"
	ErrNotFound          = "NOT_FOUND"
	ErrNoResult          = "NO_RESULT"
	ErrSuperseded        = "SUPERSEDED"
	ErrExport            = "EXPORT_ERROR"
	ErrInvalidInput      = "INVALID_INPUT"
	ErrInternalServer    = "INTERNAL_SERVER_ERROR"
)

// Origins of a RequestError
const (
	OriginServer    = "Server"
	OriginTransport = "Request failed"
)

// ValidationError represents a missing or unusable input value
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// EncodingError signals a form state that cannot be mapped onto the schema.
// It indicates a bug upstream of the encoder.
type EncodingError struct {
	Group   string      `json:"group"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

// Error implements the error interface
func (e *EncodingError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("encoding error: %s", e.Message)
	}
	return fmt.Sprintf("encoding error for group '%s': %s", e.Group, e.Message)
}

// RequestError is a transport failure or a non-success response from the
// prediction service. Error returns the user-facing message.
type RequestError struct {
	Origin     string `json:"origin"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Origin, e.Message)
}

// Unwrap exposes the underlying transport error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// MalformedResultError lists members missing from a prediction result
type MalformedResultError struct {
	Missing []string `json:"missing"`
	Reason  string   `json:"reason,omitempty"`
}

// Error implements the error interface
func (e *MalformedResultError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed prediction result: %s", e.Reason)
	}
	return fmt.Sprintf("malformed prediction result: missing %s", strings.Join(e.Missing, ", "))
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewEncodingError creates a new EncodingError
func NewEncodingError(group, message string, value interface{}) *EncodingError {
	return &EncodingError{
		Group:   group,
		Value:   value,
		Message: message,
	}
}

// NewServerError reports a non-success response that carried a detail string
func NewServerError(status int, detail string) *RequestError {
	return &RequestError{
		Origin:     OriginServer,
		Message:    detail,
		StatusCode: status,
	}
}

// NewTransportError reports a failure without a server-provided detail
func NewTransportError(status int, err error) *RequestError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &RequestError{
		Origin:     OriginTransport,
		Message:    msg,
		StatusCode: status,
		Err:        err,
	}
}
