package apperrors

import (
	"errors"
	"fmt"
)

// Outcome tells the caller what a failed operation left behind.
type Outcome string

const (
	// OutcomeRetry means nothing was persisted; the call may be retried.
	OutcomeRetry Outcome = "retry"
	// OutcomeRepair means a partial mutation happened; reconciliation is the remedy.
	OutcomeRepair Outcome = "repair"
	// OutcomeRejected means the operation is not allowed; retrying will not help.
	OutcomeRejected Outcome = "rejected"
)

// OperationError is the structured failure of a lifecycle or undo operation.
type OperationError struct {
	Operation   string
	OrderID     string
	Step        string
	Outcome     Outcome
	Compensated bool
	Err         error
}

func (e *OperationError) Error() string {
	target := ""
	if e.OrderID != "" {
		target = " on order " + e.OrderID
	}
	return fmt.Sprintf("%s%s failed at %s (%s): %v", e.Operation, target, e.Step, e.Outcome, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Classify picks the outcome of an error raised before anything was persisted.
func Classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrConcurrentModification):
		return OutcomeRetry
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrStateConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrUndoLimit),
		errors.Is(err, ErrNotUndoable):
		return OutcomeRejected
	}
	return OutcomeRetry
}

// OutcomeOf extracts the outcome of err, classifying plain errors when no OperationError is present.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Outcome
	}
	return Classify(err)
}

// IsRetryable reports whether the caller may safely retry the same call.
func IsRetryable(err error) bool {
	return err != nil && OutcomeOf(err) == OutcomeRetry
}

// NeedsRepair reports whether reconciliation should be run.
func NeedsRepair(err error) bool {
	return err != nil && OutcomeOf(err) == OutcomeRepair
}

// IsClientError reports whether the failure was caused by the request itself.
func IsClientError(err error) bool {
	return err != nil && OutcomeOf(err) == OutcomeRejected
}
