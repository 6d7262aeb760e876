package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthenticationRequired occurs when no verified identity is bound to the request.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrPermissionDenied occurs when the caller's role or scope does not allow the operation.
	ErrPermissionDenied = errors.New("Access denied")
	// ErrDuplicate indicates a unique constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)
