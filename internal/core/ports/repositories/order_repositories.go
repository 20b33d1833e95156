package repositories

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// OrderReader defines read operations for the order store.
type OrderReader interface {
	// FindOrderByID retrieves an order by its normalized identifier.
	FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error)

	// FindActiveOrderByChatID retrieves the non-archived order bound to a chat, if any.
	FindActiveOrderByChatID(ctx context.Context, chatID string) (*domain.Order, error)

	// SearchOrders scans the order store with the given criteria, newest issue date first.
	SearchOrders(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, error)

	// ListOrdersAfter pages through every order by identifier. Used by reconciliation scans.
	ListOrdersAfter(ctx context.Context, afterOrderID string, group *string, limit int) ([]domain.Order, error)

	// AggregateOrders sums amounts and counts by group, state, class and issue date.
	AggregateOrders(ctx context.Context, filter domain.OrderAggregateFilter) ([]domain.OrderTotals, error)
}

// OrderWriter defines write operations for the order store. Updates and deletes are
// conditional on the state and amount the caller last read.
type OrderWriter interface {
	// SaveOrder inserts a new order. Fails with ErrDuplicate when the id exists or the chat
	// already has an active order.
	SaveOrder(ctx context.Context, order domain.Order) error

	// UpdateOrder replaces the mutable columns of an order if it still has the expected state
	// and amount; otherwise it returns a concurrent modification error.
	UpdateOrder(ctx context.Context, order domain.Order, expectedState domain.OrderState, expectedAmount decimal.Decimal) error

	// DeleteOrder removes an order under the same optimistic check as UpdateOrder.
	DeleteOrder(ctx context.Context, orderID string, expectedState domain.OrderState, expectedAmount decimal.Decimal) error
}

// OrderRepositoryFacade combines all order repository interfaces.
type OrderRepositoryFacade interface {
	OrderReader
	OrderWriter
}
