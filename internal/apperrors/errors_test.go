package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_MatchesSentinelByCode(t *testing.T) {
	cause := errors.New("connection reset")

	storageErr := apperrors.NewAppError(http.StatusInternalServerError, "failed to update order", cause)
	assert.ErrorIs(t, storageErr, apperrors.ErrStorage)
	assert.ErrorIs(t, storageErr, cause)
	assert.Contains(t, storageErr.Error(), "connection reset")

	notFound := apperrors.NewNotFoundError("order", "S01-1")
	assert.ErrorIs(t, notFound, apperrors.ErrNotFound)
	assert.Equal(t, "order 'S01-1' not found", notFound.Error())

	badInput := apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", cause)
	assert.ErrorIs(t, badInput, apperrors.ErrValidation)
}

func TestStateConflictError(t *testing.T) {
	err := &apperrors.StateConflictError{OrderID: "A", Current: "end", Attempted: "normal"}
	assert.ErrorIs(t, err, apperrors.ErrStateConflict)
	assert.NotErrorIs(t, err, apperrors.ErrConcurrentModification)

	concurrent := apperrors.NewConcurrentModificationError("A", "normal", "end")
	assert.ErrorIs(t, concurrent, apperrors.ErrConcurrentModification)
	assert.ErrorIs(t, concurrent, apperrors.ErrStateConflict)
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Outcome
	}{
		{"validation", fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation), apperrors.OutcomeRejected},
		{"terminal state", &apperrors.StateConflictError{OrderID: "A", Current: "end", Attempted: "interest"}, apperrors.OutcomeRejected},
		{"lost race", apperrors.NewConcurrentModificationError("A", "normal", "end"), apperrors.OutcomeRetry},
		{"storage before any write", apperrors.NewStorageError("insert failed", assert.AnError), apperrors.OutcomeRetry},
		{"undo limit", &apperrors.UndoLimitError{ActorID: "u1", Limit: 3}, apperrors.OutcomeRejected},
		{"explicit repair", &apperrors.OperationError{Operation: "transition_state", Step: "counters", Outcome: apperrors.OutcomeRepair, Err: apperrors.ErrStatsInconsistent}, apperrors.OutcomeRepair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.OutcomeOf(tt.err))
		})
	}

	assert.True(t, apperrors.IsRetryable(apperrors.NewStorageError("x", assert.AnError)))
	assert.True(t, apperrors.IsClientError(apperrors.ErrDuplicate))
	assert.False(t, apperrors.NeedsRepair(nil))
}

func TestOperationError_Unwraps(t *testing.T) {
	err := &apperrors.OperationError{
		Operation: "record_interest",
		OrderID:   "S01-1",
		Step:      "counters",
		Outcome:   apperrors.OutcomeRepair,
		Err:       fmt.Errorf("%w: %w", apperrors.ErrStatsInconsistent, assert.AnError),
	}
	assert.ErrorIs(t, err, apperrors.ErrStatsInconsistent)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, apperrors.NeedsRepair(err))
	assert.Contains(t, err.Error(), "record_interest on order S01-1 failed at counters (repair)")
}
