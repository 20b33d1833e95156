package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultIncomePageSize = 50
	maxIncomePageSize     = 500
)

// ledgerService appends to and reads the income ledger.
type ledgerService struct {
	BaseService
	incomeRepo portsrepo.IncomeRepositoryFacade
	calendar   *clock.Calendar
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(incomeRepo portsrepo.IncomeRepositoryFacade, calendar *clock.Calendar) portssvc.LedgerSvcFacade {
	return &ledgerService{incomeRepo: incomeRepo, calendar: calendar}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) Record(ctx context.Context, input domain.NewIncomeRecord) (*domain.IncomeRecord, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown income type %q", apperrors.ErrValidation, input.Type)
	}
	if input.Amount.IsZero() {
		return nil, fmt.Errorf("%w: income amount must be non-zero", apperrors.ErrValidation)
	}
	if err := requireCents("income amount", input.Amount); err != nil {
		return nil, err
	}
	date, err := domain.ParseBusinessDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: income date %q is not YYYY-MM-DD", apperrors.ErrValidation, input.Date)
	}
	if input.Type.RequiresOrder() && input.Order == nil {
		return nil, fmt.Errorf("%w: %s income must reference an order", apperrors.ErrValidation, input.Type)
	}

	record := domain.IncomeRecord{
		ID:             uuid.NewString(),
		Date:           date,
		Type:           input.Type,
		Amount:         input.Amount,
		OwnershipGroup: domain.NormalizeGroup(input.OwnershipGroup),
		Note:           input.Note,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      s.calendar.Now(),
	}
	if o := input.Order; o != nil {
		orderID, issueDate, class, bucket := o.OrderID, o.IssueDate, o.CustomerClass, o.WeekdayBucket
		record.OrderID = &orderID
		record.OrderDate = &issueDate
		record.CustomerClass = &class
		record.WeekdayBucket = &bucket
		record.OwnershipGroup = o.OwnershipGroup
	}

	if err := s.incomeRepo.SaveIncomeRecord(ctx, record); err != nil {
		s.LogError(ctx, err, "Failed to save income record", zap.String("type", string(record.Type)), zap.String("record_id", record.ID))
		return nil, err
	}
	s.LogDebug(ctx, "Income recorded", zap.String("record_id", record.ID), zap.String("type", string(record.Type)), zap.String("amount", record.Amount.String()))
	return &record, nil
}

func (s *ledgerService) Reverse(ctx context.Context, id string, actorID string) error {
	if err := s.incomeRepo.MarkIncomeRecordReversed(ctx, id, actorID, s.calendar.Now()); err != nil {
		if !errors.Is(err, apperrors.ErrStateConflict) && !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to reverse income record", zap.String("record_id", id))
		}
		return err
	}
	return nil
}

func (s *ledgerService) GetIncomeRecord(ctx context.Context, id string) (*domain.IncomeRecord, error) {
	return s.incomeRepo.FindIncomeRecordByID(ctx, id)
}

func (s *ledgerService) ListIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error) {
	if limit <= 0 {
		limit = defaultIncomePageSize
	}
	if limit > maxIncomePageSize {
		limit = maxIncomePageSize
	}
	return s.incomeRepo.ListIncomeRecords(ctx, filter, limit, nextToken)
}

func (s *ledgerService) AggregateIncome(ctx context.Context, filter domain.IncomeFilter) ([]domain.IncomeTotals, error) {
	return s.incomeRepo.AggregateIncome(ctx, filter)
}
