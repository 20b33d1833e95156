package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// PartitionSvcFacade keeps the order replicas in step with the order store.
type PartitionSvcFacade interface {
	// Sync moves an order between replicas after a write. A nil before means a new order.
	// The returned error reports drift; callers treat it as non-fatal.
	Sync(ctx context.Context, before *domain.Order, after *domain.Order) error

	// Remove deletes an order from every replica.
	Remove(ctx context.Context, order domain.Order) error

	// Search answers criteria from the most selective replica. The boolean is false when no
	// partitioned dimension was filtered and the caller must fall back to the order store.
	Search(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, bool, error)
}
