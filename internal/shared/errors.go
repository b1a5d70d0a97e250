package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// classify failures with errors.Is without parsing messages.
var (
	// ErrValidation indicates rejected input: missing fields, non-positive
	// amounts, payments above balance due, unbalanced journal entries.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency indicates a derived-state violation detected inside a
	// transaction, e.g. an inventory underflow. The transaction is aborted.
	ErrConsistency = errors.New("consistency violation")
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("not found")
	// ErrPersistence indicates a storage failure after which the transaction
	// has been rolled back. The underlying driver error stays wrapped and is
	// never shown to end users.
	ErrPersistence = errors.New("persistence failure")
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Consistencyf builds a consistency error with a formatted message.
func Consistencyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage-layer error. The driver text travels with the
// error chain for logs but the stable kind is what surfaces to callers.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
