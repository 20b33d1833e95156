package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrStateConflict indicates that the order is not in a state that permits the operation.
var ErrStateConflict = errors.New("state conflict")

// ErrConcurrentModification indicates that a conditional write lost against another writer.
var ErrConcurrentModification = fmt.Errorf("%w: order was modified concurrently", ErrStateConflict)

// ErrStorage indicates that an underlying store read or write failed.
var ErrStorage = errors.New("storage error")

// ErrStatsInconsistent indicates that a mutation failed after the order write succeeded.
var ErrStatsInconsistent = errors.New("statistics inconsistency - repair available")

// ErrRepairRequired indicates that compensation could not restore the previous state.
var ErrRepairRequired = errors.New("rollback failed - run reconciliation")

// ErrDriftDetected is raised by reconciliation when stored aggregates disagree with the sources of truth.
var ErrDriftDetected = errors.New("drift detected")

// ErrUndoLimit indicates that the actor used up the consecutive undos of the business day.
var ErrUndoLimit = errors.New("undo limit reached")

// ErrNotUndoable indicates that a history entry cannot be reversed.
var ErrNotUndoable = errors.New("operation cannot be undone")

// ErrLockHeld indicates that another process holds the requested lock.
var ErrLockHeld = errors.New("lock is held by another process")

// AppError carries an HTTP-like status code next to the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. The code selects the sentinel the error matches with errors.Is.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError reports a missing resource of the given kind.
func NewNotFoundError(resource string, id string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: fmt.Sprintf("%s '%s' not found", resource, id)}
}

// NewStorageError wraps a failed store call.
func NewStorageError(message string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the sentinel implied by the code and the cause.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := sentinelForCode(e.Code); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinelForCode(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusConflict:
		return ErrStateConflict
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return ErrStorage
	}
	return nil
}

// StateConflictError describes an operation attempted from a state that does not allow it.
type StateConflictError struct {
	OrderID   string
	Current   string
	Attempted string
	Reason    string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("order %s in state %s does not allow %s", e.OrderID, e.Current, e.Attempted)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StateConflictError) Unwrap() error {
	if e.Reason == reasonConcurrent {
		return ErrConcurrentModification
	}
	return ErrStateConflict
}

const reasonConcurrent = "concurrent modification"

// NewConcurrentModificationError reports a lost conditional write on an order.
func NewConcurrentModificationError(orderID, current, attempted string) *StateConflictError {
	return &StateConflictError{OrderID: orderID, Current: current, Attempted: attempted, Reason: reasonConcurrent}
}

// UndoLimitError reports that the actor exhausted the consecutive undos of the day.
type UndoLimitError struct {
	ActorID string
	Limit   int
}

func (e *UndoLimitError) Error() string {
	return fmt.Sprintf("actor %s already undid %d operations in a row today", e.ActorID, e.Limit)
}

func (e *UndoLimitError) Unwrap() error { return ErrUndoLimit }

// DriftError summarises an audit that found disagreements.
type DriftError struct {
	Counters   int
	Partitions int
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%d counter discrepancies and %d partition drifts detected", e.Counters, e.Partitions)
}

func (e *DriftError) Unwrap() error { return ErrDriftDetected }
