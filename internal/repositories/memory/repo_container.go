package memory

import (
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
)

// NewRepositoryProvider wires a fresh set of in-memory repositories.
// Used for local runs and service tests.
func NewRepositoryProvider(counterOpts ...CounterOption) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		OrderRepo:     NewOrderRepository(),
		PartitionRepo: NewPartitionRepository(),
		IncomeRepo:    NewIncomeRepository(),
		CounterRepo:   NewCounterRepository(counterOpts...),
		HistoryRepo:   NewHistoryRepository(),
	}
}
