package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"go.uber.org/zap"
)

// partitionService maintains the dimension replicas of the order store.
type partitionService struct {
	BaseService
	partitionRepo portsrepo.PartitionRepositoryFacade
}

// NewPartitionService creates a new PartitionService.
func NewPartitionService(partitionRepo portsrepo.PartitionRepositoryFacade) portssvc.PartitionSvcFacade {
	return &partitionService{partitionRepo: partitionRepo}
}

var _ portssvc.PartitionSvcFacade = (*partitionService)(nil)

func (s *partitionService) Sync(ctx context.Context, before *domain.Order, after *domain.Order) error {
	upserts, removals := domain.PartitionDiff(before, after)

	var errs []error
	if after != nil {
		for _, ref := range upserts {
			if err := s.partitionRepo.UpsertPartitionRow(ctx, ref, *after); err != nil {
				errs = append(errs, s.driftError(ctx, "upsert", ref, after.OrderID, err))
			}
		}
	}
	if before != nil {
		for _, ref := range removals {
			if err := s.partitionRepo.DeletePartitionRow(ctx, ref, before.OrderID); err != nil {
				errs = append(errs, s.driftError(ctx, "delete", ref, before.OrderID, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *partitionService) Remove(ctx context.Context, order domain.Order) error {
	return s.Sync(ctx, &order, nil)
}

func (s *partitionService) driftError(ctx context.Context, action string, ref domain.PartitionRef, orderID string, err error) error {
	s.LogWarn(ctx, "Partition replica update failed, left for reconciliation",
		zap.String("action", action),
		zap.String("dimension", string(ref.Dimension)),
		zap.String("partition_key", ref.Key),
		zap.String("order_id", orderID),
		zap.Error(err))
	return fmt.Errorf("partition %s/%s %s %s: %w", ref.Dimension, ref.Key, action, orderID, err)
}

// Search scans a single replica and filters it with the full criteria. Replicas are chosen in
// order of expected selectivity; customer class has two values and is tried last.
func (s *partitionService) Search(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, bool, error) {
	ref, ok := selectPartition(criteria)
	if !ok {
		return nil, false, nil
	}

	rows, err := s.partitionRepo.ScanPartition(ctx, ref)
	if err != nil {
		return nil, true, err
	}
	result := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		if criteria.Matches(o) {
			result = append(result, o)
		}
	}
	domain.SortOrdersNewestFirst(result)
	if criteria.Limit > 0 && len(result) > criteria.Limit {
		result = result[:criteria.Limit]
	}
	return result, true, nil
}

func selectPartition(c domain.OrderSearchCriteria) (domain.PartitionRef, bool) {
	switch {
	case c.State != nil:
		return domain.PartitionRef{Dimension: domain.DimensionState, Key: domain.SanitizePartitionKey(string(*c.State))}, true
	case c.WeekdayBucket != nil:
		return domain.PartitionRef{Dimension: domain.DimensionWeekday, Key: domain.SanitizePartitionKey(*c.WeekdayBucket)}, true
	case c.OwnershipGroup != nil:
		return domain.PartitionRef{Dimension: domain.DimensionGroup, Key: domain.SanitizePartitionKey(*c.OwnershipGroup)}, true
	case c.CustomerClass != nil:
		return domain.PartitionRef{Dimension: domain.DimensionCustomerClass, Key: domain.SanitizePartitionKey(string(*c.CustomerClass))}, true
	}
	return domain.PartitionRef{}, false
}
