package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrCorrupt      = errors.New("corrupt snapshot")
	ErrFetchFailed  = errors.New("fetch failed")
)

// APIError represents an error response from the read API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
