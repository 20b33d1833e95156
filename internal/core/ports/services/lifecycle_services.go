package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// LifecycleWriterSvc defines the mutating order operations.
type LifecycleWriterSvc interface {
	// CreateOrder issues a new order and books its volume.
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest, actorID string) (*domain.Order, error)

	// TransitionState moves an order to the target state with all side effects.
	TransitionState(ctx context.Context, orderID string, target domain.OrderState, actorID string) (*domain.Order, error)

	// RecordInterest books an interest payment on a non-terminal order.
	RecordInterest(ctx context.Context, orderID string, amount decimal.Decimal, actorID string) (*domain.IncomeRecord, error)

	// ReducePrincipal books a partial repayment and lowers the outstanding amount.
	ReducePrincipal(ctx context.Context, orderID string, amount decimal.Decimal, actorID string) (*domain.IncomeRecord, error)

	// RecordAdjustment books a manual ledger adjustment that is not tied to an order.
	RecordAdjustment(ctx context.Context, req dto.RecordAdjustmentRequest, actorID string) (*domain.IncomeRecord, error)

	// UndoLast reverses the actor's most recent live operation in the chat for today.
	UndoLast(ctx context.Context, actorID string, chatID string) (*domain.HistoryEntry, error)
}

// LifecycleReaderSvc defines the read queries consumed by reporting.
type LifecycleReaderSvc interface {
	// GetOrder retrieves an order by its business code.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// SearchOrders finds orders, using partition replicas when a partitioned dimension is filtered.
	SearchOrders(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, error)

	// GetCounters reads counter rows and their sum.
	GetCounters(ctx context.Context, query domain.CounterQuery) (*domain.CounterReport, error)

	// GetIncomeRecords reads a page of ledger rows.
	GetIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error)
}

// LifecycleSvcFacade combines all lifecycle service interfaces.
type LifecycleSvcFacade interface {
	LifecycleWriterSvc
	LifecycleReaderSvc
}
