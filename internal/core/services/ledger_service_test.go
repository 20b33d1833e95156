package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Record(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewLedgerService(memory.NewIncomeRepository(), clock.NewCalendar(clock.NewManual(fixtureNow), nil))
	order := &domain.Order{
		OrderID:        "S01-1",
		OwnershipGroup: "S01",
		IssueDate:      fixtureNow,
		WeekdayBucket:  "friday",
		CustomerClass:  domain.ClassReturning,
	}

	tests := []struct {
		name  string
		input domain.NewIncomeRecord
	}{
		{"unknown type", domain.NewIncomeRecord{Date: "2024-03-15", Type: "gift", Amount: dec(1), Order: order}},
		{"zero amount", domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeInterest, Amount: dec(0), Order: order}},
		{"bad date", domain.NewIncomeRecord{Date: "15/03/2024", Type: domain.IncomeInterest, Amount: dec(1), Order: order}},
		{"order required", domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeCompleted, Amount: dec(1)}},
		{"sub-cent amount", domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeInterest, Amount: decimal.RequireFromString("0.001"), Order: order}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Record(ctx, tt.input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	record, err := ledger.Record(ctx, domain.NewIncomeRecord{
		Date:           "2024-03-15",
		Type:           domain.IncomeInterest,
		Amount:         dec(120),
		OwnershipGroup: "ignored",
		Order:          order,
		CreatedBy:      "actor-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "S01", record.OwnershipGroup)
	require.NotNil(t, record.OrderID)
	assert.Equal(t, "S01-1", *record.OrderID)
	assert.Equal(t, domain.ClassReturning, *record.CustomerClass)
	assert.Equal(t, fixtureNow, record.CreatedAt)

	adjustment, err := ledger.Record(ctx, domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeAdjustment, Amount: dec(-5), OwnershipGroup: " s02 "})
	require.NoError(t, err)
	assert.Equal(t, "S02", adjustment.OwnershipGroup)
	assert.Nil(t, adjustment.OrderID)
}

func TestLedgerService_ReverseOnce(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewLedgerService(memory.NewIncomeRepository(), clock.NewCalendar(clock.NewManual(fixtureNow), nil))

	record, err := ledger.Record(ctx, domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeAdjustment, Amount: dec(10), Note: "fee"})
	require.NoError(t, err)

	require.NoError(t, ledger.Reverse(ctx, record.ID, "actor-1"))
	assert.ErrorIs(t, ledger.Reverse(ctx, record.ID, "actor-1"), apperrors.ErrStateConflict)
	assert.ErrorIs(t, ledger.Reverse(ctx, "missing", "actor-1"), apperrors.ErrNotFound)

	stored, err := ledger.GetIncomeRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsReversed)
	require.NotNil(t, stored.ReversedBy)
	assert.Equal(t, "actor-1", *stored.ReversedBy)

	totals, err := ledger.AggregateIncome(ctx, domain.IncomeFilter{})
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestLedgerService_ListPages(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(fixtureNow)
	ledger := services.NewLedgerService(memory.NewIncomeRepository(), clock.NewCalendar(clk, nil))

	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		_, err := ledger.Record(ctx, domain.NewIncomeRecord{Date: "2024-03-15", Type: domain.IncomeAdjustment, Amount: dec(int64(i + 1)), Note: "n"})
		require.NoError(t, err)
	}

	page, next, err := ledger.ListIncomeRecords(ctx, domain.IncomeFilter{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].Amount.Equal(dec(5)))

	seen := len(page)
	for next != nil {
		page, next, err = ledger.ListIncomeRecords(ctx, domain.IncomeFilter{}, 2, next)
		require.NoError(t, err)
		seen += len(page)
	}
	assert.Equal(t, 5, seen)

	all, next, err := ledger.ListIncomeRecords(ctx, domain.IncomeFilter{}, 0, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Nil(t, next)

	bad := "not-a-token"
	_, _, err = ledger.ListIncomeRecords(ctx, domain.IncomeFilter{}, 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
