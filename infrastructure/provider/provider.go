// Package provider implements the embedding backends: a remote
// OpenAI-compatible API client and a local in-process model via hugot.
// Both satisfy the domain search.Embedder contract.
package provider

import "fmt"

// ProviderError carries the operation and upstream status of a failed
// provider call.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	err        error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		err:        err,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

// Unwrap returns the wrapped error.
func (e *ProviderError) Unwrap() error { return e.err }

// StatusCode returns the upstream HTTP status, zero when none applies.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Operation returns the failed operation name.
func (e *ProviderError) Operation() string { return e.operation }
