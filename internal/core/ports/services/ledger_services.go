package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// LedgerSvcFacade fronts the append-only income ledger.
type LedgerSvcFacade interface {
	// Record validates and appends an income record.
	Record(ctx context.Context, input domain.NewIncomeRecord) (*domain.IncomeRecord, error)

	// Reverse flags a record as reversed.
	Reverse(ctx context.Context, id string, actorID string) error

	// GetIncomeRecord retrieves a record by id.
	GetIncomeRecord(ctx context.Context, id string) (*domain.IncomeRecord, error)

	// ListIncomeRecords returns a page of records, newest first.
	ListIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error)

	// AggregateIncome sums records by date, group and type.
	AggregateIncome(ctx context.Context, filter domain.IncomeFilter) ([]domain.IncomeTotals, error)
}
