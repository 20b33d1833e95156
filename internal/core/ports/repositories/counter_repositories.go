package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// CounterReader defines read operations for the aggregate counters.
type CounterReader interface {
	// FindCounter returns the row of a scope, or ErrNotFound when it was never written.
	FindCounter(ctx context.Context, scope domain.CounterScope) (*domain.CounterRow, error)

	// ListGroupCounters returns every group row.
	ListGroupCounters(ctx context.Context) ([]domain.CounterRow, error)

	// ListDailyCounters returns daily rows in the inclusive date range. A nil group returns
	// the rows of every group including the all-groups rows.
	ListDailyCounters(ctx context.Context, from, to time.Time, group *string) ([]domain.CounterRow, error)

	// SupportsField reports whether the store has a column for the field.
	SupportsField(ctx context.Context, field domain.CounterField) (bool, error)
}

// CounterWriter defines the atomic per-row increment used by every counter update.
type CounterWriter interface {
	// ApplyCounterDeltas adds the deltas to the scope's row in one atomic write, creating the
	// row with a zero baseline when absent.
	ApplyCounterDeltas(ctx context.Context, scope domain.CounterScope, deltas []domain.FieldDelta) error
}

// CounterRepositoryFacade combines all counter repository interfaces.
type CounterRepositoryFacade interface {
	CounterReader
	CounterWriter
}
