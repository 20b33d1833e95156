package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/lock"
	"github.com/SscSPs/loan_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixtureNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// flakyCounterRepo delegates to the in-memory store and, once armed, fails the writes the
// mock expectations say should fail.
type flakyCounterRepo struct {
	*memory.CounterRepository
	mock.Mock
	armed bool
}

func (r *flakyCounterRepo) ApplyCounterDeltas(ctx context.Context, scope domain.CounterScope, deltas []domain.FieldDelta) error {
	if r.armed {
		if err := r.Called(scope.Kind).Error(0); err != nil {
			return err
		}
	}
	return r.CounterRepository.ApplyCounterDeltas(ctx, scope, deltas)
}

type flakyHistoryRepo struct {
	*memory.HistoryRepository
	mock.Mock
	armed bool
}

func (r *flakyHistoryRepo) SaveHistoryEntry(ctx context.Context, entry domain.HistoryEntry) error {
	if r.armed {
		if err := r.Called(entry.OperationType).Error(0); err != nil {
			return err
		}
	}
	return r.HistoryRepository.SaveHistoryEntry(ctx, entry)
}

func (r *flakyHistoryRepo) MarkHistoryEntryUndone(ctx context.Context, id string, undoneAt time.Time) error {
	if r.armed {
		if err := r.Called(id).Error(0); err != nil {
			return err
		}
	}
	return r.HistoryRepository.MarkHistoryEntryUndone(ctx, id, undoneAt)
}

type flakyPartitionRepo struct {
	*memory.PartitionRepository
	mock.Mock
	armed bool
}

func (r *flakyPartitionRepo) UpsertPartitionRow(ctx context.Context, ref domain.PartitionRef, order domain.Order) error {
	if r.armed {
		if err := r.Called(ref.Dimension).Error(0); err != nil {
			return err
		}
	}
	return r.PartitionRepository.UpsertPartitionRow(ctx, ref, order)
}

type serviceFixture struct {
	clock      *clock.Manual
	calendar   *clock.Calendar
	locker     *lock.LocalLocker
	cfg        *config.Config
	orders     *memory.OrderRepository
	partitions *flakyPartitionRepo
	income     *memory.IncomeRepository
	counters   *flakyCounterRepo
	history    *flakyHistoryRepo
	repos      portsrepo.RepositoryProvider
	svc        *portssvc.ServiceContainer
}

func newServiceFixture(counterOpts ...memory.CounterOption) *serviceFixture {
	f := &serviceFixture{
		clock:      clock.NewManual(fixtureNow),
		locker:     lock.NewLocalLocker(),
		orders:     memory.NewOrderRepository(),
		partitions: &flakyPartitionRepo{PartitionRepository: memory.NewPartitionRepository()},
		income:     memory.NewIncomeRepository(),
		history:    &flakyHistoryRepo{HistoryRepository: memory.NewHistoryRepository()},
		cfg: &config.Config{
			UndoDailyLimit:   services.DefaultUndoDailyLimit,
			ReconcileEpsilon: decimal.NewFromFloat(0.01),
			RepairPolicy:     domain.RepairStrict,
			RepairLockTTL:    time.Minute,
		},
	}
	f.calendar = clock.NewCalendar(f.clock, time.UTC)
	counterOpts = append(counterOpts, memory.WithCounterClock(f.clock.Now))
	f.counters = &flakyCounterRepo{CounterRepository: memory.NewCounterRepository(counterOpts...)}
	f.repos = portsrepo.RepositoryProvider{
		OrderRepo:     f.orders,
		PartitionRepo: f.partitions,
		IncomeRepo:    f.income,
		CounterRepo:   f.counters,
		HistoryRepo:   f.history,
	}
	f.svc = services.NewServiceContainer(f.cfg, f.repos, f.calendar, f.locker)
	return f
}

func createRequest(orderID, chatID, group string, amount int64) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		OrderID:        orderID,
		ChatID:         chatID,
		OwnershipGroup: group,
		IssueDate:      fixtureNow.Format(domain.DateLayout),
		CustomerClass:  domain.ClassNew,
		Amount:         decimal.NewFromInt(amount),
	}
}

func (f *serviceFixture) counter(t require.TestingT, scope domain.CounterScope, field domain.CounterField) decimal.Decimal {
	row, err := f.svc.Counter.GetCounter(context.Background(), scope)
	require.NoError(t, err)
	return row.Values.Get(field)
}

func (f *serviceFixture) today() domain.ReconcileRequest {
	day := f.calendar.Today()
	return domain.ReconcileRequest{From: day, To: day}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// newContainer rebuilds the services after a test changed the fixture's config.
func newContainer(f *serviceFixture) *portssvc.ServiceContainer {
	return services.NewServiceContainer(f.cfg, f.repos, f.calendar, f.locker)
}

func adjustment(amount int64, chatID string) dto.RecordAdjustmentRequest {
	return dto.RecordAdjustmentRequest{Amount: dec(amount), Note: "manual entry", ChatID: chatID}
}
