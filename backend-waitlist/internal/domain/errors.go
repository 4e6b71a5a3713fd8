package domain

import "errors"

// Domain errors
var (
	// Validation errors
	ErrInvalidName       = errors.New("name must be between 1 and 100 characters")
	ErrInvalidSettings   = errors.New("invalid queue settings")
	ErrInvalidQueueID    = errors.New("invalid queue id")
	ErrInvalidCustomerID = errors.New("invalid customer id")
	ErrInvalidToken      = errors.New("invalid customer token")
	ErrInvalidSlug       = errors.New("slug must be 1-64 lowercase letters, digits or dashes")
	ErrInvalidPartySize  = errors.New("party size must be between 1 and 50")

	// Not found errors
	ErrQueueNotFound    = errors.New("queue not found")
	ErrCustomerNotFound = errors.New("customer not found")

	// Business rule errors
	ErrQueueNotActive     = errors.New("queue is not active")
	ErrQueuePaused        = errors.New("queue is paused")
	ErrCapacityExceeded   = errors.New("queue is at capacity")
	ErrQueueEmpty         = errors.New("no customers waiting")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDuplicateToken     = errors.New("customer token already in use")
	ErrQueueAlreadyExists = errors.New("queue already exists")

	// Concurrency errors
	ErrVersionConflict = errors.New("queue was modified concurrently")

	// ErrCorruptQueue marks persisted state the aggregate can never produce
	ErrCorruptQueue = errors.New("corrupt queue state")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrQueueNotFound) ||
		errors.Is(err, ErrCustomerNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidQueueID) ||
		errors.Is(err, ErrInvalidCustomerID) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidSlug) ||
		errors.Is(err, ErrInvalidPartySize)
}

// IsBusinessRuleError checks if the error is a business-rule rejection
func IsBusinessRuleError(err error) bool {
	return errors.Is(err, ErrQueueNotActive) ||
		errors.Is(err, ErrQueuePaused) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrQueueEmpty)
}

// IsTransitionError checks if the error is an invalid state transition
func IsTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsConflictError checks if the error is an optimistic concurrency conflict.
// It is the only kind callers are expected to retry.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
