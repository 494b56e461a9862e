package model

import "fmt"

// InvocationError reports a failed provider call. StatusCode carries the
// provider HTTP status when known (0 otherwise) so the retry policy can
// distinguish transient from permanent failures.
type InvocationError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s invocation failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s invocation failed: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *InvocationError) Unwrap() error { return e.Err }

// NewInvocationError wraps a provider error with its origin and status code.
func NewInvocationError(provider string, statusCode int, err error) *InvocationError {
	return &InvocationError{Provider: provider, StatusCode: statusCode, Err: err}
}
