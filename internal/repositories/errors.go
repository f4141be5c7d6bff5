package repositories

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEntry is returned when trying to create a record whose key is taken
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidID is returned when an invalid ID is provided
	ErrInvalidID = errors.New("invalid ID")

	// ErrConditionFailed is returned when a conditional write or transaction
	// was rejected because its precondition did not hold
	ErrConditionFailed = errors.New("condition failed")

	// ErrValueAbsent is returned when a list removal target is not in the list
	ErrValueAbsent = errors.New("value not present in list")

	// ErrCacheEmpty is returned when the ID cache has nothing to pop
	ErrCacheEmpty = errors.New("id cache is empty")

	// ErrTransaction is returned when a transaction operation fails
	ErrTransaction = errors.New("transaction error")

	// ErrConnection is returned when the store cannot be reached
	ErrConnection = errors.New("store connection error")

	// ErrConcurrency is returned when a compare-and-swap loop gives up
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrUnsupported is returned when an unsupported operation is attempted
	ErrUnsupported = errors.New("unsupported operation")
)

// RepositoryError represents a repository-specific error with additional context
type RepositoryError struct {
	Op      string // Operation that failed
	Entity  string // Entity type
	ID      string // Entity ID (if applicable)
	Err     error  // Underlying error
	Message string // Human-readable message
}

// Error implements the error interface
func (e *RepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.ID != "" {
		return fmt.Sprintf("%s %s operation failed for ID %s: %v", e.Entity, e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s %s operation failed: %v", e.Entity, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new repository error
func NewRepositoryError(op, entity, id string, err error) *RepositoryError {
	return &RepositoryError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// NotFoundError creates a "not found" repository error
func NotFoundError(entity, id string) *RepositoryError {
	return &RepositoryError{
		Op:      "get",
		Entity:  entity,
		ID:      id,
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", entity, id),
	}
}

// DuplicateError creates a "duplicate entry" repository error
func DuplicateError(entity, field, value string) *RepositoryError {
	return &RepositoryError{
		Op:      "create",
		Entity:  entity,
		Err:     ErrDuplicateEntry,
		Message: fmt.Sprintf("%s with %s '%s' already exists", entity, field, value),
	}
}

// ConditionError creates a "condition failed" repository error
func ConditionError(op, entity, id string) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Err:     ErrConditionFailed,
		Message: fmt.Sprintf("%s %s rejected: condition not met", entity, op),
	}
}

// ValueAbsentError creates an error for a removal whose target is not in the list
func ValueAbsentError(entity, id, list string, value int64) *RepositoryError {
	return &RepositoryError{
		Op:      "remove",
		Entity:  entity,
		ID:      id,
		Err:     ErrValueAbsent,
		Message: fmt.Sprintf("%d not present in %s.%s of %s", value, entity, list, id),
	}
}

// TransactionError creates a "transaction" repository error
func TransactionError(op string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Entity:  "transaction",
		Err:     fmt.Errorf("%w: %v", ErrTransaction, err),
		Message: fmt.Sprintf("transaction %s failed: %v", op, err),
	}
}

// ConnectionError creates a "connection" repository error
func ConnectionError(err error) *RepositoryError {
	return &RepositoryError{
		Op:      "connect",
		Entity:  "store",
		Err:     fmt.Errorf("%w: %v", ErrConnection, err),
		Message: fmt.Sprintf("store connection failed: %v", err),
	}
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if an error is a "duplicate entry" error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsConditionFailed checks if a conditional write was rejected
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsValueAbsent checks if a list removal found nothing to remove
func IsValueAbsent(err error) bool {
	return errors.Is(err, ErrValueAbsent)
}

// IsCacheEmpty checks if the ID cache was empty
func IsCacheEmpty(err error) bool {
	return errors.Is(err, ErrCacheEmpty)
}

// EmptyResultError creates a "not found" error for a query that matched nothing
func EmptyResultError(entity, filter string) *RepositoryError {
	return &RepositoryError{
		Op:      "query",
		Entity:  entity,
		Err:     ErrNotFound,
		Message: fmt.Sprintf("no %s matches %s", entity, filter),
	}
}
