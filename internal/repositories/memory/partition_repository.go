package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
)

// PartitionRepository holds one map of rows per partition ref.
type PartitionRepository struct {
	mu         sync.RWMutex
	partitions map[domain.PartitionRef]map[string]domain.Order
}

// NewPartitionRepository creates an empty in-memory replica store.
func NewPartitionRepository() *PartitionRepository {
	return &PartitionRepository{partitions: make(map[domain.PartitionRef]map[string]domain.Order)}
}

var _ portsrepo.PartitionRepositoryFacade = (*PartitionRepository)(nil)

func (r *PartitionRepository) UpsertPartitionRow(_ context.Context, ref domain.PartitionRef, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.partitions[ref]
	if !ok {
		rows = make(map[string]domain.Order)
		r.partitions[ref] = rows
	}
	rows[order.OrderID] = order
	return nil
}

func (r *PartitionRepository) DeletePartitionRow(_ context.Context, ref domain.PartitionRef, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rows, ok := r.partitions[ref]; ok {
		delete(rows, orderID)
	}
	return nil
}

func (r *PartitionRepository) ScanPartition(_ context.Context, ref domain.PartitionRef) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.partitions[ref]
	result := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		result = append(result, o)
	}
	domain.SortOrdersNewestFirst(result)
	return result, nil
}

func (r *PartitionRepository) ListPartitionKeys(_ context.Context, dimension domain.PartitionDimension) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0)
	for ref := range r.partitions {
		if ref.Dimension == dimension {
			keys = append(keys, ref.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
