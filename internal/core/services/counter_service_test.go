package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockCounterRepository is a mock type for the CounterRepositoryFacade interface
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) FindCounter(ctx context.Context, scope domain.CounterScope) (*domain.CounterRow, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CounterRow), args.Error(1)
}

func (m *MockCounterRepository) ListGroupCounters(ctx context.Context) ([]domain.CounterRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CounterRow), args.Error(1)
}

func (m *MockCounterRepository) ListDailyCounters(ctx context.Context, from, to time.Time, group *string) ([]domain.CounterRow, error) {
	args := m.Called(ctx, from, to, group)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CounterRow), args.Error(1)
}

func (m *MockCounterRepository) SupportsField(ctx context.Context, field domain.CounterField) (bool, error) {
	args := m.Called(ctx, field)
	return args.Bool(0), args.Error(1)
}

func (m *MockCounterRepository) ApplyCounterDeltas(ctx context.Context, scope domain.CounterScope, deltas []domain.FieldDelta) error {
	args := m.Called(ctx, scope, deltas)
	return args.Error(0)
}

type CounterServiceTestSuite struct {
	suite.Suite
	mockRepo *MockCounterRepository
	service  portssvc.CounterSvcFacade
	ctx      context.Context
	day      time.Time
}

func (suite *CounterServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockCounterRepository)
	suite.service = services.NewCounterService(suite.mockRepo)
	suite.ctx = context.Background()
	suite.day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
}

func (suite *CounterServiceTestSuite) TestApply_WritesFourRowsWithoutZeroDeltas() {
	mutation := domain.CounterMutation{Date: suite.day, Group: "S01", Deltas: []domain.FieldDelta{
		{Field: domain.FieldInterestTotal, Amount: dec(30)},
		{Field: domain.FieldOverdueCount, Amount: dec(0)},
	}}
	want := []domain.FieldDelta{{Field: domain.FieldInterestTotal, Amount: dec(30)}}
	for _, scope := range mutation.Scopes() {
		suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, scope, want).Return(nil).Once()
	}

	applied, err := suite.service.Apply(suite.ctx, mutation)

	suite.Require().NoError(err)
	suite.Len(applied, 4)
	suite.Equal(domain.GlobalScope(), applied[0].Scope)
	suite.Equal(domain.DailyScope(suite.day, ""), applied[3].Scope)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CounterServiceTestSuite) TestApply_AllZeroIsNoop() {
	applied, err := suite.service.Apply(suite.ctx, domain.CounterMutation{Date: suite.day, Group: "S01", Deltas: []domain.FieldDelta{
		{Field: domain.FieldValidAmount, Amount: dec(0)},
	}})

	suite.NoError(err)
	suite.Empty(applied)
	suite.mockRepo.AssertNotCalled(suite.T(), "ApplyCounterDeltas", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CounterServiceTestSuite) TestApply_ReturnsRowsWrittenBeforeFailure() {
	mutation := domain.CounterMutation{Date: suite.day, Group: "S01", Deltas: []domain.FieldDelta{
		{Field: domain.FieldValidAmount, Amount: dec(100)},
	}}
	scopes := mutation.Scopes()
	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, scopes[0], mock.Anything).Return(nil).Once()
	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, scopes[1], mock.Anything).Return(assert.AnError).Once()

	applied, err := suite.service.Apply(suite.ctx, mutation)

	suite.ErrorIs(err, assert.AnError)
	suite.Require().Len(applied, 1)
	suite.Equal(domain.GlobalScope(), applied[0].Scope)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CounterServiceTestSuite) TestApply_UnknownFieldRejected() {
	_, err := suite.service.Apply(suite.ctx, domain.CounterMutation{Date: suite.day, Group: "S01", Deltas: []domain.FieldDelta{
		{Field: "bogus", Amount: dec(1)},
	}})

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "ApplyCounterDeltas", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CounterServiceTestSuite) TestRevert_NegatesNewestFirstAndContinuesPastFailures() {
	applied := []domain.AppliedCounterChange{
		{Scope: domain.GlobalScope(), Deltas: []domain.FieldDelta{{Field: domain.FieldValidAmount, Amount: dec(100)}}},
		{Scope: domain.GroupScope("S01"), Deltas: []domain.FieldDelta{{Field: domain.FieldValidAmount, Amount: dec(100)}}},
	}
	negated := []domain.FieldDelta{{Field: domain.FieldValidAmount, Amount: dec(-100)}}
	var order []domain.CounterScopeKind
	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, domain.GroupScope("S01"), negated).Return(assert.AnError).Once().
		Run(func(args mock.Arguments) { order = append(order, args.Get(1).(domain.CounterScope).Kind) })
	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, domain.GlobalScope(), negated).Return(nil).Once().
		Run(func(args mock.Arguments) { order = append(order, args.Get(1).(domain.CounterScope).Kind) })

	err := suite.service.Revert(suite.ctx, applied)

	suite.ErrorIs(err, assert.AnError)
	suite.Equal([]domain.CounterScopeKind{domain.ScopeGroup, domain.ScopeGlobal}, order)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CounterServiceTestSuite) TestLegacyFieldSkippedAndSupportCached() {
	suite.mockRepo.On("SupportsField", suite.ctx, domain.FieldExpenseAmount).Return(false, nil).Once()
	want := []domain.FieldDelta{
		{Field: domain.FieldAdjustmentTotal, Amount: dec(-50)},
		{Field: domain.FieldLiquidBalance, Amount: dec(-50)},
	}
	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, mock.Anything, want).Return(nil)

	mutation := domain.CounterMutation{Date: suite.day, Group: "S01", Deltas: domain.IncomeDeltas(domain.IncomeAdjustment, dec(-50))}
	_, err := suite.service.Apply(suite.ctx, mutation)
	suite.Require().NoError(err)
	_, err = suite.service.Apply(suite.ctx, mutation)
	suite.Require().NoError(err)

	suite.NoError(suite.service.AddGlobal(suite.ctx, domain.FieldExpenseAmount, dec(10)))

	suite.mockRepo.AssertNumberOfCalls(suite.T(), "SupportsField", 1)
	suite.mockRepo.AssertNumberOfCalls(suite.T(), "ApplyCounterDeltas", 8)
}

func (suite *CounterServiceTestSuite) TestAddPrimitivesValidateScope() {
	suite.ErrorIs(suite.service.AddGroup(suite.ctx, "", domain.FieldValidAmount, dec(1)), apperrors.ErrValidation)
	suite.ErrorIs(suite.service.AddDaily(suite.ctx, time.Time{}, "S01", domain.FieldValidAmount, dec(1)), apperrors.ErrValidation)

	suite.mockRepo.On("ApplyCounterDeltas", suite.ctx, domain.DailyScope(suite.day, "S01"),
		[]domain.FieldDelta{{Field: domain.FieldValidAmount, Amount: dec(1)}}).Return(nil).Once()
	suite.NoError(suite.service.AddDaily(suite.ctx, suite.day.Add(13*time.Hour), "S01", domain.FieldValidAmount, dec(1)))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CounterServiceTestSuite) TestGetCounter_MissingRowReadsAsZero() {
	suite.mockRepo.On("FindCounter", suite.ctx, domain.GroupScope("S09")).
		Return(nil, apperrors.NewNotFoundError("counter row", "group:S09")).Once()

	row, err := suite.service.GetCounter(suite.ctx, domain.GroupScope("S09"))

	suite.Require().NoError(err)
	suite.True(row.Values.Get(domain.FieldValidAmount).IsZero())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *CounterServiceTestSuite) TestQueryCounters_DailyReadsAllGroupsRows() {
	to := suite.day.AddDate(0, 0, 1)
	rows := []domain.CounterRow{
		{Scope: domain.DailyScope(suite.day, ""), Values: domain.CounterValues{domain.FieldInterestTotal: dec(10)}},
		{Scope: domain.DailyScope(to, ""), Values: domain.CounterValues{domain.FieldInterestTotal: dec(5)}},
	}
	suite.mockRepo.On("ListDailyCounters", suite.ctx, suite.day, to, mock.MatchedBy(func(g *string) bool {
		return g != nil && *g == ""
	})).Return(rows, nil).Once()

	report, err := suite.service.QueryCounters(suite.ctx, domain.CounterQuery{Kind: domain.ScopeDaily, From: &suite.day, To: &to})

	suite.Require().NoError(err)
	suite.Len(report.Rows, 2)
	suite.True(report.Total.Get(domain.FieldInterestTotal).Equal(dec(15)))
	suite.mockRepo.AssertExpectations(suite.T())

	_, err = suite.service.QueryCounters(suite.ctx, domain.CounterQuery{Kind: domain.ScopeDaily, From: &to, To: &suite.day})
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.service.QueryCounters(suite.ctx, domain.CounterQuery{Kind: "weekly"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestCounterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CounterServiceTestSuite))
}
