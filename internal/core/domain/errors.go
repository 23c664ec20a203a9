package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidFilter indicates a store filter references an unknown field
	ErrInvalidFilter = errors.New("invalid filter field")

	// ErrDimensionMismatch indicates a vector does not match the store's
	// configured dimensionality
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrServiceUnavailable indicates the embedding provider could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
