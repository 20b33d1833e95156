package services

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CounterUpdaterSvc exposes the three update primitives and the batched forms built on them.
// Callers must pass the exact delta they intend to apply; nothing is deduplicated.
type CounterUpdaterSvc interface {
	AddGlobal(ctx context.Context, field domain.CounterField, delta decimal.Decimal) error
	AddGroup(ctx context.Context, group string, field domain.CounterField, delta decimal.Decimal) error
	AddDaily(ctx context.Context, date time.Time, group string, field domain.CounterField, delta decimal.Decimal) error

	// Apply writes a mutation row by row and returns what was written, even on failure.
	Apply(ctx context.Context, mutation domain.CounterMutation) ([]domain.AppliedCounterChange, error)

	// Revert negates previously applied changes.
	Revert(ctx context.Context, applied []domain.AppliedCounterChange) error
}

// CounterReaderSvc exposes counter reads.
type CounterReaderSvc interface {
	GetCounter(ctx context.Context, scope domain.CounterScope) (*domain.CounterRow, error)
	QueryCounters(ctx context.Context, query domain.CounterQuery) (*domain.CounterReport, error)

	// SupportsField reports whether updates to the field reach the store.
	SupportsField(ctx context.Context, field domain.CounterField) (bool, error)
}

// CounterSvcFacade combines all counter service interfaces.
type CounterSvcFacade interface {
	CounterUpdaterSvc
	CounterReaderSvc
}
