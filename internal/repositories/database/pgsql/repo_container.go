package pgsql

import (
	"time"

	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	orderRepo := newPgxOrderRepository(dbPool)
	partitionRepo := newPgxPartitionRepository(dbPool)
	incomeRepo := newPgxIncomeRepository(dbPool)
	counterRepo := newPgxCounterRepository(dbPool, func() time.Time { return time.Now().UTC() })
	historyRepo := newPgxHistoryRepository(dbPool)

	return portsrepo.RepositoryProvider{
		OrderRepo:     orderRepo,
		PartitionRepo: partitionRepo,
		IncomeRepo:    incomeRepo,
		CounterRepo:   counterRepo,
		HistoryRepo:   historyRepo,
	}
}
