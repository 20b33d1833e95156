package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"go.uber.org/zap"
)

// orderMutator performs the individual store writes of an order pipeline and registers the
// compensating write of each one on the pipeline.
type orderMutator struct {
	BaseService
	orderRepo  portsrepo.OrderRepositoryFacade
	partitions portssvc.PartitionSvcFacade
	ledger     portssvc.LedgerSvcFacade
	counters   portssvc.CounterSvcFacade
}

func (m *orderMutator) insertOrder(ctx context.Context, p *pipeline, order domain.Order) error {
	if err := m.orderRepo.SaveOrder(ctx, order); err != nil {
		return err
	}
	p.onFailure("delete_order", func(ctx context.Context) error {
		if err := m.orderRepo.DeleteOrder(ctx, order.OrderID, order.State, order.Amount); err != nil {
			return err
		}
		m.syncPartitions(ctx, &order, nil)
		return nil
	})
	m.syncPartitions(ctx, nil, &order)
	return nil
}

func (m *orderMutator) updateOrder(ctx context.Context, p *pipeline, before, after domain.Order) error {
	if err := m.orderRepo.UpdateOrder(ctx, after, before.State, before.Amount); err != nil {
		return err
	}
	p.onFailure("revert_order", func(ctx context.Context) error {
		if err := m.orderRepo.UpdateOrder(ctx, before, after.State, after.Amount); err != nil {
			return err
		}
		m.syncPartitions(ctx, &after, &before)
		return nil
	})
	m.syncPartitions(ctx, &before, &after)
	return nil
}

func (m *orderMutator) deleteOrder(ctx context.Context, p *pipeline, order domain.Order) error {
	if err := m.orderRepo.DeleteOrder(ctx, order.OrderID, order.State, order.Amount); err != nil {
		return err
	}
	p.onFailure("restore_order", func(ctx context.Context) error {
		if err := m.orderRepo.SaveOrder(ctx, order); err != nil {
			return err
		}
		m.syncPartitions(ctx, nil, &order)
		return nil
	})
	m.syncPartitions(ctx, &order, nil)
	return nil
}

// syncPartitions never fails the pipeline; replica drift is repaired by reconciliation.
func (m *orderMutator) syncPartitions(ctx context.Context, before, after *domain.Order) {
	if err := m.partitions.Sync(ctx, before, after); err != nil {
		m.LogWarn(ctx, "Partition replicas drifted from order store", zap.Error(err))
	}
}

func (m *orderMutator) recordIncome(ctx context.Context, p *pipeline, input domain.NewIncomeRecord) (*domain.IncomeRecord, error) {
	record, err := m.ledger.Record(ctx, input)
	if err != nil {
		return nil, err
	}
	p.onFailure("reverse_income", func(ctx context.Context) error {
		return m.ledger.Reverse(ctx, record.ID, input.CreatedBy)
	})
	return record, nil
}

func (m *orderMutator) applyCounters(ctx context.Context, p *pipeline, mutation domain.CounterMutation) error {
	applied, err := m.counters.Apply(ctx, mutation)
	if len(applied) > 0 {
		p.onFailure("revert_counters", func(ctx context.Context) error {
			return m.counters.Revert(ctx, applied)
		})
	}
	return err
}
