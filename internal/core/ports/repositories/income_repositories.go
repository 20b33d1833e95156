package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// IncomeReader defines read operations for the ledger.
type IncomeReader interface {
	// FindIncomeRecordByID retrieves a record regardless of its reversal flag.
	FindIncomeRecordByID(ctx context.Context, id string) (*domain.IncomeRecord, error)

	// ListIncomeRecords returns a page of records ordered by date then creation time, descending.
	// It returns the records, a token for the next page, and an error.
	ListIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error)

	// AggregateIncome sums the filtered records by date, group and type.
	AggregateIncome(ctx context.Context, filter domain.IncomeFilter) ([]domain.IncomeTotals, error)
}

// IncomeWriter defines the two writes the append-only ledger allows.
type IncomeWriter interface {
	// SaveIncomeRecord appends a record.
	SaveIncomeRecord(ctx context.Context, record domain.IncomeRecord) error

	// MarkIncomeRecordReversed flags a record as reversed. A record that is already reversed
	// yields ErrStateConflict.
	MarkIncomeRecordReversed(ctx context.Context, id string, reversedBy string, reversedAt time.Time) error
}

// IncomeRepositoryFacade combines all ledger repository interfaces.
type IncomeRepositoryFacade interface {
	IncomeReader
	IncomeWriter
}
