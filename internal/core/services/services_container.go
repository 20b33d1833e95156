package services

import (
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/lock"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, calendar *clock.Calendar, locker lock.Locker) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Leaf services first; the pipelines are built on top of them
	container.Counter = NewCounterService(repos.CounterRepo)
	container.Ledger = NewLedgerService(repos.IncomeRepo, calendar)
	container.Partition = NewPartitionService(repos.PartitionRepo)

	container.History = NewHistoryService(
		repos.HistoryRepo,
		repos.OrderRepo,
		container.Partition,
		container.Ledger,
		container.Counter,
		calendar,
		WithUndoDailyLimit(cfg.UndoDailyLimit),
	)

	container.Lifecycle = NewLifecycleService(
		repos.OrderRepo,
		container.Partition,
		container.Ledger,
		container.Counter,
		container.History,
		calendar,
	)

	container.Reconciliation = NewReconciliationService(
		repos.OrderRepo,
		repos.PartitionRepo,
		container.Ledger,
		container.Counter,
		calendar,
		WithEpsilon(cfg.ReconcileEpsilon),
		WithRepairPolicy(cfg.RepairPolicy),
		WithLocker(locker, cfg.RepairLockTTL),
		WithScanConcurrency(cfg.ReconcileScanConcurrency),
	)

	return container
}
