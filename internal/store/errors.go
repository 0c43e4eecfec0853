package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity, such as a second tracking configuration for the
	// same (person, type) pair.
	ErrDuplicate = errors.New("entity already exists")

	// ErrReferentialIntegrity is returned when an operation would reference
	// a nonexistent entity, or delete one that is still referenced. The
	// operation is aborted with no partial write.
	ErrReferentialIntegrity = errors.New("referential integrity violation")

	// ErrSchema is returned by schema lifecycle operations only on an
	// underlying I/O failure; creating an existing schema or dropping a
	// missing one is idempotent, not an error.
	ErrSchema = errors.New("schema operation failed")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction fails to commit
	// or an operation within it fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors.

	// ErrPersonNotFound indicates the requested person does not exist.
	ErrPersonNotFound = fmt.Errorf("%w: person", ErrNotFound)

	// ErrScheduleNotFound indicates the requested schedule does not exist.
	ErrScheduleNotFound = fmt.Errorf("%w: schedule", ErrNotFound)

	// ErrDatapointNotFound indicates the requested datapoint does not exist.
	ErrDatapointNotFound = fmt.Errorf("%w: datapoint", ErrNotFound)

	// ErrTrackingConfigExists indicates a configuration already exists for
	// the (person, type) pair.
	ErrTrackingConfigExists = fmt.Errorf("%w: tracking config", ErrDuplicate)

	// ErrDatapointExists indicates a datapoint with the same natural key
	// already exists.
	ErrDatapointExists = fmt.Errorf("%w: datapoint", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError carries entity and operation context alongside the wrapped
// storage error.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError with the given context.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
