package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"go.uber.org/zap"
)

// Pipeline step names reported in OperationError.Step.
const (
	stepValidate     = "validate"
	stepOrderWrite   = "order_write"
	stepLedger       = "ledger"
	stepCounters     = "counters"
	stepHistory      = "history"
	stepMarkUndone   = "mark_undone"
	stepLimitCheck   = "undo_limit"
	stepLookupEntry  = "lookup_entry"
	stepVerifyTarget = "verify_target"
)

type compensationStep struct {
	name string
	run  func(ctx context.Context) error
}

// pipeline tracks one operation's completed writes so they can be undone in reverse order.
type pipeline struct {
	BaseService
	operation string
	orderID   string
	undo      []compensationStep
}

func newPipeline(operation, orderID string) *pipeline {
	return &pipeline{operation: operation, orderID: orderID}
}

// onFailure registers the compensating write of a step that just succeeded.
func (p *pipeline) onFailure(name string, run func(ctx context.Context) error) {
	p.undo = append(p.undo, compensationStep{name: name, run: run})
}

// fail turns a step error into an OperationError. Before any write it only classifies;
// after a partial mutation it compensates and reports a repair outcome.
func (p *pipeline) fail(ctx context.Context, step string, err error) error {
	if len(p.undo) == 0 {
		return &apperrors.OperationError{
			Operation: p.operation,
			OrderID:   p.orderID,
			Step:      step,
			Outcome:   apperrors.Classify(err),
			Err:       err,
		}
	}

	p.LogWarn(ctx, "Operation failed after partial mutation, compensating",
		zap.String("operation", p.operation),
		zap.String("order_id", p.orderID),
		zap.String("step", step),
		zap.Error(err))

	rollbackErr := p.rollback(ctx)
	if rollbackErr != nil {
		p.LogError(ctx, rollbackErr, "Compensation failed, reconciliation required",
			zap.String("operation", p.operation),
			zap.String("order_id", p.orderID),
			zap.String("step", step))
		return &apperrors.OperationError{
			Operation: p.operation,
			OrderID:   p.orderID,
			Step:      step,
			Outcome:   apperrors.OutcomeRepair,
			Err: fmt.Errorf("%w: %w: %w (rollback: %w)",
				apperrors.ErrRepairRequired, apperrors.ErrStatsInconsistent, err, rollbackErr),
		}
	}

	return &apperrors.OperationError{
		Operation:   p.operation,
		OrderID:     p.orderID,
		Step:        step,
		Outcome:     apperrors.OutcomeRepair,
		Compensated: true,
		Err:         fmt.Errorf("%w: %w", apperrors.ErrStatsInconsistent, err),
	}
}

// rollback runs every registered compensation, newest first, and keeps going past failures.
func (p *pipeline) rollback(ctx context.Context) error {
	// Compensation must run even when the caller's context is already cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(p.undo) - 1; i >= 0; i-- {
		step := p.undo[i]
		if err := step.run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.name, err))
			continue
		}
		p.LogDebug(ctx, "Compensation step applied", zap.String("operation", p.operation), zap.String("step", step.name))
	}
	p.undo = nil
	return errors.Join(errs...)
}
