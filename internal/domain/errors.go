package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the ABO inheritance core
var (
	ErrInvalidPhenotype = errors.New("invalid blood group")
	ErrInvalidParent    = errors.New("invalid parent phenotype")
	ErrNotFound         = errors.New("not found")
)

// Error codes for different failure scenarios
const (
	ErrCodeInvalidPhenotype = "INVALID_PHENOTYPE"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
)

// InvalidPhenotypeError reports a raw blood-group token that does not
// normalize to A, B, AB or O. Value holds the token exactly as received.
type InvalidPhenotypeError struct {
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *InvalidPhenotypeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid blood group: %#v, must be A, B, AB or O", e.Value)
}

// Is makes errors.Is(err, ErrInvalidPhenotype) hold for every InvalidPhenotypeError
func (e *InvalidPhenotypeError) Is(target error) bool {
	return target == ErrInvalidPhenotype
}

// NewInvalidPhenotypeError creates a new InvalidPhenotypeError for the raw value
func NewInvalidPhenotypeError(value interface{}) *InvalidPhenotypeError {
	return &InvalidPhenotypeError{Value: value}
}

// APIError represents a standardized error response
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Value     interface{} `json:"value,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message string, value interface{}, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Value:     value,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
