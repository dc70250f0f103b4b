package transfer

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of transfer errors
type ErrorType int

const (
	ErrorInvalidURL ErrorType = iota
	ErrorNetwork
	ErrorHTTPStatus
	ErrorFilesystem
	ErrorCancelled
	ErrorUnknown
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorInvalidURL:
		return "invalid_url"
	case ErrorNetwork:
		return "network_failure"
	case ErrorHTTPStatus:
		return "http_status"
	case ErrorFilesystem:
		return "filesystem_error"
	case ErrorCancelled:
		return "cancelled"
	case ErrorUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// TransferError represents a structured error that occurred during a transfer
type TransferError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Cause      error     `json:"cause,omitempty"`
	StatusCode int       `json:"status_code,omitempty"` // set for ErrorHTTPStatus
}

// Error implements the error interface
func (te *TransferError) Error() string {
	if te.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", te.Type.String(), te.Message, te.Cause)
	}
	return fmt.Sprintf("%s: %s", te.Type.String(), te.Message)
}

// Unwrap returns the underlying cause error
func (te *TransferError) Unwrap() error {
	return te.Cause
}

// IsType checks if the error is of a specific type
func (te *TransferError) IsType(errorType ErrorType) bool {
	return te.Type == errorType
}

// NewTransferError creates a new TransferError with the specified type and message
func NewTransferError(errorType ErrorType, message string) *TransferError {
	return &TransferError{
		Type:    errorType,
		Message: message,
	}
}

// NewTransferErrorWithCause creates a new TransferError wrapping a cause
func NewTransferErrorWithCause(errorType ErrorType, message string, cause error) *TransferError {
	return &TransferError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsTransferError checks if an error is a TransferError and optionally of a
// specific type
func IsTransferError(err error, errorType ...ErrorType) bool {
	var te *TransferError
	if !errors.As(err, &te) {
		return false
	}
	if len(errorType) == 0 {
		return true
	}
	for _, et := range errorType {
		if te.Type == et {
			return true
		}
	}
	return false
}

// IsCancelled reports whether err represents a cooperative cancellation
// rather than a genuine failure
func IsCancelled(err error) bool {
	return IsTransferError(err, ErrorCancelled)
}
