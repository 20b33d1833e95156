package repositories

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// PartitionRepositoryFacade maintains the dimension-filtered order replicas.
// Partition stores are created on first write for a key.
type PartitionRepositoryFacade interface {
	// UpsertPartitionRow writes the order row into the partition.
	UpsertPartitionRow(ctx context.Context, ref domain.PartitionRef, order domain.Order) error

	// DeletePartitionRow removes the order from the partition. Missing rows are not an error.
	DeletePartitionRow(ctx context.Context, ref domain.PartitionRef, orderID string) error

	// ScanPartition returns every row held by the partition.
	ScanPartition(ctx context.Context, ref domain.PartitionRef) ([]domain.Order, error)

	// ListPartitionKeys returns the keys that have a partition store for the dimension.
	ListPartitionKeys(ctx context.Context, dimension domain.PartitionDimension) ([]string, error)
}
