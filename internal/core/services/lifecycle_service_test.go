package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LifecycleServiceTestSuite struct {
	suite.Suite
	ctx context.Context
	f   *serviceFixture
}

func (suite *LifecycleServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.f = newServiceFixture()
}

func (suite *LifecycleServiceTestSuite) create(orderID, chatID, group string, amount int64) *domain.Order {
	order, err := suite.f.svc.Lifecycle.CreateOrder(suite.ctx, createRequest(orderID, chatID, group, amount), "actor-1")
	suite.Require().NoError(err)
	return order
}

func (suite *LifecycleServiceTestSuite) incomeFor(orderID string, includeReversed bool) []domain.IncomeRecord {
	records, _, err := suite.f.svc.Lifecycle.GetIncomeRecords(suite.ctx, domain.IncomeFilter{OrderID: &orderID, IncludeReversed: includeReversed}, 0, nil)
	suite.Require().NoError(err)
	return records
}

func (suite *LifecycleServiceTestSuite) assertNoDrift() {
	report, err := suite.f.svc.Reconciliation.Audit(suite.ctx, suite.f.today())
	suite.Require().NoError(err)
	suite.Empty(report.Discrepancies)
	suite.Empty(report.Partitions)
}

func (suite *LifecycleServiceTestSuite) TestCreateOrder_Success() {
	order := suite.create(" s01 42 ", "chat-1", "s01", 10000)

	suite.Equal("S01-42", order.OrderID)
	suite.Equal("S01", order.OwnershipGroup)
	suite.Equal(domain.StateNormal, order.State)
	suite.Equal("friday", order.WeekdayBucket)
	suite.True(order.IssuedAmount.Equal(dec(10000)))

	group := domain.GroupScope("S01")
	suite.True(suite.f.counter(suite.T(), group, domain.FieldValidAmount).Equal(dec(10000)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldValidCount).Equal(dec(1)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldNewClientAmount).Equal(dec(10000)))
	suite.True(suite.f.counter(suite.T(), domain.DailyScope(fixtureNow, ""), domain.FieldNewClientCount).Equal(dec(1)))

	stored, err := suite.f.svc.Lifecycle.GetOrder(suite.ctx, "s01-42")
	suite.Require().NoError(err)
	suite.Equal(order.OrderID, stored.OrderID)
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestCreateOrder_Rejected() {
	suite.create("S01-1", "chat-1", "S01", 1000)

	tests := []struct {
		name   string
		req    dto.CreateOrderRequest
		target error
	}{
		{"duplicate id", createRequest("s01-1", "chat-2", "S01", 500), apperrors.ErrDuplicate},
		{"chat already has an active order", createRequest("S01-2", "chat-1", "S01", 500), apperrors.ErrDuplicate},
		{"zero amount", createRequest("S01-3", "chat-3", "S01", 0), apperrors.ErrValidation},
		{"bad order id", createRequest("S01/3", "chat-3", "S01", 500), apperrors.ErrValidation},
		{"missing chat", createRequest("S01-3", "", "S01", 500), apperrors.ErrValidation},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.f.svc.Lifecycle.CreateOrder(suite.ctx, tt.req, "actor-1")
			suite.ErrorIs(err, tt.target)
			suite.Equal(apperrors.OutcomeRejected, apperrors.OutcomeOf(err))
		})
	}

	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldValidCount).Equal(dec(1)))
}

// Closing an order books its outstanding amount as completed income.
func (suite *LifecycleServiceTestSuite) TestTransitionState_CompleteOrder() {
	suite.create("S01-1", "chat-1", "S01", 10000)

	order, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateEnd, "actor-1")
	suite.Require().NoError(err)
	suite.Equal(domain.StateEnd, order.State)

	records := suite.incomeFor("S01-1", false)
	suite.Require().Len(records, 1)
	suite.Equal(domain.IncomeCompleted, records[0].Type)
	suite.True(records[0].Amount.Equal(dec(10000)))
	suite.Equal("S01", records[0].OwnershipGroup)

	group := domain.GroupScope("S01")
	suite.True(suite.f.counter(suite.T(), group, domain.FieldCompletedAmount).Equal(dec(10000)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldValidAmount).IsZero())
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldLiquidBalance).Equal(dec(10000)))

	state := domain.StateEnd
	found, err := suite.f.svc.Lifecycle.SearchOrders(suite.ctx, domain.OrderSearchCriteria{State: &state})
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)
	suite.Equal("S01-1", found[0].OrderID)

	normal := domain.StateNormal
	found, err = suite.f.svc.Lifecycle.SearchOrders(suite.ctx, domain.OrderSearchCriteria{State: &normal})
	suite.Require().NoError(err)
	suite.Empty(found)
	suite.assertNoDrift()
}

// breach is not terminal, so interest may still be booked on it.
func (suite *LifecycleServiceTestSuite) TestRecordInterest_OnBreach() {
	suite.create("S01-1", "chat-1", "S01", 10000)
	_, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateBreach, "actor-1")
	suite.Require().NoError(err)

	record, err := suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", dec(300), "actor-1")
	suite.Require().NoError(err)
	suite.Equal(domain.IncomeInterest, record.Type)
	suite.True(record.Amount.Equal(dec(300)))

	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldInterestTotal).Equal(dec(300)))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldBreachAmount).Equal(dec(10000)))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldValidAmount).IsZero())
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestTerminalOrderRejectsEveryMutation() {
	suite.create("S01-1", "chat-1", "S01", 10000)
	_, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateEnd, "actor-1")
	suite.Require().NoError(err)
	liquid := suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldLiquidBalance)

	_, err = suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateNormal, "actor-1")
	var conflict *apperrors.StateConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.Equal("end", conflict.Current)
	suite.Equal(apperrors.OutcomeRejected, apperrors.OutcomeOf(err))

	_, err = suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", dec(10), "actor-1")
	suite.ErrorIs(err, apperrors.ErrStateConflict)

	_, err = suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", dec(10), "actor-1")
	suite.ErrorIs(err, apperrors.ErrStateConflict)

	suite.Len(suite.incomeFor("S01-1", true), 1)
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldLiquidBalance).Equal(liquid))

	// The chat is free again once its order is archived.
	suite.create("S01-2", "chat-1", "S01", 500)
}

func (suite *LifecycleServiceTestSuite) TestTransitionState_NotAllowed() {
	suite.create("S01-1", "chat-1", "S01", 1000)

	_, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateBreachEnd, "actor-1")
	var conflict *apperrors.StateConflictError
	suite.Require().ErrorAs(err, &conflict)
	suite.Contains(conflict.Reason, "breach")

	_, err = suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.OrderState("lost"), "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-404", domain.StateEnd, "actor-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Equal(apperrors.OutcomeRejected, apperrors.OutcomeOf(err))
}

func (suite *LifecycleServiceTestSuite) TestReducePrincipal() {
	suite.create("S01-1", "chat-1", "S01", 2000)

	record, err := suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", dec(500), "actor-1")
	suite.Require().NoError(err)
	suite.Equal(domain.IncomePrincipalReduction, record.Type)
	suite.True(record.Amount.Equal(dec(500)))

	order, err := suite.f.svc.Lifecycle.GetOrder(suite.ctx, "S01-1")
	suite.Require().NoError(err)
	suite.True(order.Amount.Equal(dec(1500)))
	suite.True(order.IssuedAmount.Equal(dec(2000)))

	group := domain.GroupScope("S01")
	suite.True(suite.f.counter(suite.T(), group, domain.FieldCompletedAmount).Equal(dec(500)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldValidAmount).Equal(dec(1500)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldValidCount).Equal(dec(1)))

	_, err = suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", dec(1501), "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", dec(-1), "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.assertNoDrift()
}

// Money columns keep two decimal places, so finer amounts are rejected before any write.
func (suite *LifecycleServiceTestSuite) TestSubCentAmountsRejected() {
	suite.create("S01-1", "chat-1", "S01", 10)
	tiny := decimal.RequireFromString("0.004")

	_, err := suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", tiny, "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", tiny, "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.f.svc.Lifecycle.RecordAdjustment(suite.ctx, dto.RecordAdjustmentRequest{Amount: decimal.RequireFromString("-1.005"), Note: "fee"}, "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	order, err := suite.f.svc.Lifecycle.GetOrder(suite.ctx, "S01-1")
	suite.Require().NoError(err)
	suite.True(order.Amount.Equal(dec(10)))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldInterestTotal).IsZero())
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldCompletedAmount).IsZero())

	record, err := suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", decimal.RequireFromString("0.50"), "actor-1")
	suite.Require().NoError(err)
	suite.True(record.Amount.Equal(decimal.RequireFromString("0.5")))
	suite.assertNoDrift()
}

// A fully repaid order closes without a second income event.
func (suite *LifecycleServiceTestSuite) TestCloseFullyRepaidOrder() {
	suite.create("S01-1", "chat-1", "S01", 800)
	_, err := suite.f.svc.Lifecycle.ReducePrincipal(suite.ctx, "S01-1", dec(800), "actor-1")
	suite.Require().NoError(err)

	_, err = suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateEnd, "actor-1")
	suite.Require().NoError(err)

	suite.Len(suite.incomeFor("S01-1", false), 1)
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldCompletedAmount).Equal(dec(800)))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldCompletedCount).IsZero())
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldValidCount).IsZero())
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestRecordAdjustment() {
	req := dto.RecordAdjustmentRequest{OwnershipGroup: "s02", Amount: dec(-200), Note: "office rent", ChatID: "chat-9"}
	record, err := suite.f.svc.Lifecycle.RecordAdjustment(suite.ctx, req, "actor-1")
	suite.Require().NoError(err)
	suite.Nil(record.OrderID)
	suite.Equal("S02", record.OwnershipGroup)

	group := domain.GroupScope("S02")
	suite.True(suite.f.counter(suite.T(), group, domain.FieldAdjustmentTotal).Equal(dec(-200)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldExpenseAmount).Equal(dec(200)))
	suite.True(suite.f.counter(suite.T(), group, domain.FieldLiquidBalance).Equal(dec(-200)))

	_, err = suite.f.svc.Lifecycle.RecordAdjustment(suite.ctx, dto.RecordAdjustmentRequest{Amount: dec(5)}, "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.f.svc.Lifecycle.RecordAdjustment(suite.ctx, dto.RecordAdjustmentRequest{Amount: dec(0), Note: "noop"}, "actor-1")
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.assertNoDrift()
}

// A counter failure after the order and ledger writes is compensated in reverse order.
func (suite *LifecycleServiceTestSuite) TestTransitionState_CounterFailureIsCompensated() {
	suite.create("S01-1", "chat-1", "S01", 10000)

	repo := suite.f.counters
	repo.armed = true
	repo.On("ApplyCounterDeltas", domain.ScopeDaily).Return(apperrors.NewStorageError("daily counter write failed", assert.AnError)).Once()
	repo.On("ApplyCounterDeltas", domain.ScopeDaily).Return(nil)
	repo.On("ApplyCounterDeltas", domain.ScopeGlobal).Return(nil)
	repo.On("ApplyCounterDeltas", domain.ScopeGroup).Return(nil)

	_, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateEnd, "actor-1")
	var opErr *apperrors.OperationError
	suite.Require().ErrorAs(err, &opErr)
	suite.Equal(apperrors.OutcomeRepair, opErr.Outcome)
	suite.Equal("counters", opErr.Step)
	suite.True(opErr.Compensated)
	suite.ErrorIs(err, apperrors.ErrStatsInconsistent)
	suite.NotErrorIs(err, apperrors.ErrRepairRequired)
	repo.AssertNumberOfCalls(suite.T(), "ApplyCounterDeltas", 5)
	repo.armed = false

	order, err := suite.f.svc.Lifecycle.GetOrder(suite.ctx, "S01-1")
	suite.Require().NoError(err)
	suite.Equal(domain.StateNormal, order.State)

	suite.Empty(suite.incomeFor("S01-1", false))
	all := suite.incomeFor("S01-1", true)
	suite.Require().Len(all, 1)
	suite.True(all[0].IsReversed)

	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldValidAmount).Equal(dec(10000)))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldCompletedAmount).IsZero())

	entries, err := suite.f.svc.History.List(suite.ctx, "actor-1", "chat-1", fixtureNow)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal(domain.OpOrderCreated, entries[0].OperationType)
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestTransitionState_FailedCompensationRequiresRepair() {
	suite.create("S01-1", "chat-1", "S01", 10000)

	repo := suite.f.counters
	repo.armed = true
	repo.On("ApplyCounterDeltas", domain.ScopeGlobal).Return(nil).Once()
	repo.On("ApplyCounterDeltas", domain.ScopeGlobal).Return(apperrors.NewStorageError("global counter write failed", assert.AnError))
	repo.On("ApplyCounterDeltas", domain.ScopeGroup).Return(nil)
	repo.On("ApplyCounterDeltas", domain.ScopeDaily).Return(apperrors.NewStorageError("daily counter write failed", assert.AnError))

	_, err := suite.f.svc.Lifecycle.TransitionState(suite.ctx, "S01-1", domain.StateEnd, "actor-1")
	suite.ErrorIs(err, apperrors.ErrRepairRequired)
	suite.True(apperrors.NeedsRepair(err))
	repo.armed = false

	audit, err := suite.f.svc.Reconciliation.Audit(suite.ctx, suite.f.today())
	suite.Require().NoError(err)
	suite.NotEmpty(audit.Discrepancies)
	for _, d := range audit.Discrepancies {
		suite.Equal(domain.ScopeGlobal, d.Scope.Kind)
	}

	report, err := suite.f.svc.Reconciliation.Repair(suite.ctx, suite.f.today())
	suite.Require().NoError(err)
	suite.Len(report.Corrected, len(audit.Discrepancies))
	suite.Empty(report.ManualReview)
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldValidAmount).Equal(dec(10000)))
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestRecordInterest_CounterFailureReversesLedgerRow() {
	suite.create("S01-1", "chat-1", "S01", 10000)

	repo := suite.f.counters
	repo.armed = true
	repo.On("ApplyCounterDeltas", domain.ScopeGlobal).Return(apperrors.NewStorageError("global counter write failed", assert.AnError))

	_, err := suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", dec(50), "actor-1")
	var opErr *apperrors.OperationError
	suite.Require().ErrorAs(err, &opErr)
	suite.True(opErr.Compensated)
	repo.armed = false

	suite.Empty(suite.incomeFor("S01-1", false))
	suite.True(suite.f.counter(suite.T(), domain.GlobalScope(), domain.FieldInterestTotal).IsZero())

	_, err = suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", dec(50), "actor-1")
	suite.Require().NoError(err)
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestHistoryFailureIsNotFatal() {
	suite.create("S01-1", "chat-1", "S01", 10000)

	suite.f.history.armed = true
	suite.f.history.On("SaveHistoryEntry", domain.OpInterestRecorded).Return(assert.AnError)

	record, err := suite.f.svc.Lifecycle.RecordInterest(suite.ctx, "S01-1", dec(75), "actor-1")
	suite.Require().NoError(err)
	suite.True(record.Amount.Equal(dec(75)))
	suite.f.history.AssertExpectations(suite.T())

	entries, err := suite.f.svc.History.List(suite.ctx, "actor-1", "chat-1", fixtureNow)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal(domain.OpOrderCreated, entries[0].OperationType)
	suite.assertNoDrift()
}

// Replica failures never fail the operation; search falls back to the order store only when no
// partitioned dimension is filtered.
func (suite *LifecycleServiceTestSuite) TestPartitionFailureLeavesDriftForRepair() {
	suite.create("S01-1", "chat-1", "S01", 1000)

	suite.f.partitions.armed = true
	suite.f.partitions.On("UpsertPartitionRow", domain.DimensionState).Return(assert.AnError)
	suite.f.partitions.On("UpsertPartitionRow", domain.DimensionCustomerClass).Return(nil)
	suite.f.partitions.On("UpsertPartitionRow", domain.DimensionWeekday).Return(nil)
	suite.f.partitions.On("UpsertPartitionRow", domain.DimensionGroup).Return(nil)

	suite.create("S01-2", "chat-2", "S01", 2000)
	suite.f.partitions.armed = false

	normal := domain.StateNormal
	byState, err := suite.f.svc.Lifecycle.SearchOrders(suite.ctx, domain.OrderSearchCriteria{State: &normal})
	suite.Require().NoError(err)
	suite.Len(byState, 1)

	chat := "chat-2"
	byChat, err := suite.f.svc.Lifecycle.SearchOrders(suite.ctx, domain.OrderSearchCriteria{ChatID: &chat})
	suite.Require().NoError(err)
	suite.Len(byChat, 1)

	audit, err := suite.f.svc.Reconciliation.Audit(suite.ctx, suite.f.today())
	suite.Require().NoError(err)
	suite.Require().Len(audit.Partitions, 1)
	suite.Equal(domain.DriftMissing, audit.Partitions[0].Kind)
	suite.Equal("S01-2", audit.Partitions[0].OrderID)

	_, err = suite.f.svc.Reconciliation.Repair(suite.ctx, suite.f.today())
	suite.Require().NoError(err)

	byState, err = suite.f.svc.Lifecycle.SearchOrders(suite.ctx, domain.OrderSearchCriteria{State: &normal})
	suite.Require().NoError(err)
	suite.Len(byState, 2)
	suite.assertNoDrift()
}

func (suite *LifecycleServiceTestSuite) TestGetCounters() {
	suite.create("S01-1", "chat-1", "S01", 1000)
	suite.create("S02-1", "chat-2", "S02", 3000)

	report, err := suite.f.svc.Lifecycle.GetCounters(suite.ctx, domain.CounterQuery{Kind: domain.ScopeGroup})
	suite.Require().NoError(err)
	suite.Len(report.Rows, 2)
	suite.True(report.Total.Get(domain.FieldValidAmount).Equal(dec(4000)))

	day := fixtureNow
	daily, err := suite.f.svc.Lifecycle.GetCounters(suite.ctx, domain.CounterQuery{Kind: domain.ScopeDaily, From: &day, To: &day})
	suite.Require().NoError(err)
	suite.Require().Len(daily.Rows, 1)
	suite.Equal("", daily.Rows[0].Scope.Group)
	suite.True(daily.Total.Get(domain.FieldNewClientCount).Equal(dec(2)))

	_, err = suite.f.svc.Lifecycle.GetCounters(suite.ctx, domain.CounterQuery{Kind: domain.ScopeDaily})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestLifecycleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceTestSuite))
}

type failingIncomeRepo struct {
	*memory.IncomeRepository
}

func (r *failingIncomeRepo) SaveIncomeRecord(_ context.Context, _ domain.IncomeRecord) error {
	return apperrors.NewStorageError("failed to insert income record", assert.AnError)
}

// A failure before anything was persisted is retryable and leaves no trace.
func TestRecordAdjustment_LedgerFailureIsRetryable(t *testing.T) {
	f := newServiceFixture()
	ledger := services.NewLedgerService(&failingIncomeRepo{IncomeRepository: f.income}, f.calendar)
	lifecycle := services.NewLifecycleService(f.orders, f.svc.Partition, ledger, f.svc.Counter, f.svc.History, f.calendar)

	_, err := lifecycle.RecordAdjustment(context.Background(),
		dto.RecordAdjustmentRequest{Amount: dec(10), Note: "fee"}, "actor-1")
	require.Error(t, err)
	var opErr *apperrors.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, apperrors.OutcomeRetry, opErr.Outcome)
	assert.Equal(t, "ledger", opErr.Step)
	assert.False(t, opErr.Compensated)
	assert.True(t, apperrors.IsRetryable(err))

	row, err := f.svc.Counter.GetCounter(context.Background(), domain.GlobalScope())
	require.NoError(t, err)
	assert.True(t, row.Values.Get(domain.FieldLiquidBalance).IsZero())
}
