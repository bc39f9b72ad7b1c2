package errors

import (
	"fmt"
	"net/http"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "InvalidRequest", "ProductNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (field name, upstream info, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "ProductNotFound", "NotificationNotFound", "ResourceNotFound":
		return http.StatusNotFound
	case "NetworkError", "ParseError":
		return http.StatusBadGateway
	case "StoreError", "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

// Common error constructors
func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError("ValidationError", message, fmt.Sprintf("Field: %s", field))
}

func NewProductNotFound(productID string) *StandardError {
	return NewStandardError("ProductNotFound", "product not found", fmt.Sprintf("Product ID: %s", productID))
}

func NewNotificationNotFound(notificationID string) *StandardError {
	return NewStandardError("NotificationNotFound", "notification not found", fmt.Sprintf("Notification ID: %s", notificationID))
}

// NewNetworkError wraps a failed request against the remote marketplace API
func NewNetworkError(operation string, err error) *StandardError {
	return NewStandardError("NetworkError", fmt.Sprintf("marketplace request failed: %s", operation), err.Error())
}

// NewParseError wraps a malformed response from the remote marketplace API
func NewParseError(operation string, err error) *StandardError {
	return NewStandardError("ParseError", fmt.Sprintf("malformed marketplace response: %s", operation), err.Error())
}

func NewStoreError(operation string, err error) *StandardError {
	return NewStandardError("StoreError", fmt.Sprintf("store operation failed: %s", operation), err.Error())
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}
