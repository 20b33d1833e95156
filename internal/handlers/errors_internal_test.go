package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad amount", apperrors.ErrValidation), http.StatusBadRequest},
		{"not found", apperrors.NewNotFoundError("order", "X"), http.StatusNotFound},
		{"duplicate", apperrors.NewAppError(http.StatusConflict, "dup", apperrors.ErrDuplicate), http.StatusConflict},
		{"concurrent", apperrors.NewConcurrentModificationError("X", "normal", "end"), http.StatusConflict},
		{"undo limit", &apperrors.UndoLimitError{ActorID: "a", Limit: 3}, http.StatusTooManyRequests},
		{"lock held", fmt.Errorf("%w: reconcile:all", apperrors.ErrLockHeld), http.StatusConflict},
		{"storage retry", &apperrors.OperationError{Operation: "create", Outcome: apperrors.OutcomeRetry, Err: apperrors.NewStorageError("down", nil)}, http.StatusServiceUnavailable},
		{"repair", &apperrors.OperationError{Operation: "transition", Outcome: apperrors.OutcomeRepair, Err: apperrors.ErrStatsInconsistent}, http.StatusInternalServerError},
		{"repair beats validation", &apperrors.OperationError{Outcome: apperrors.OutcomeRepair, Err: apperrors.ErrValidation}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
