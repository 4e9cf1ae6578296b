package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicateKey signals that a request key was already claimed.
	ErrDuplicateKey = errors.New("request key already used")
)
