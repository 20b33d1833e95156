package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// counterService applies deltas to the global, group and daily counter rows.
type counterService struct {
	BaseService
	counterRepo portsrepo.CounterRepositoryFacade

	mu        sync.Mutex
	supported map[domain.CounterField]bool
}

// NewCounterService creates a new CounterService.
func NewCounterService(counterRepo portsrepo.CounterRepositoryFacade) portssvc.CounterSvcFacade {
	return &counterService{
		counterRepo: counterRepo,
		supported:   make(map[domain.CounterField]bool),
	}
}

var _ portssvc.CounterSvcFacade = (*counterService)(nil)

func (s *counterService) AddGlobal(ctx context.Context, field domain.CounterField, delta decimal.Decimal) error {
	return s.addToScope(ctx, domain.GlobalScope(), field, delta)
}

func (s *counterService) AddGroup(ctx context.Context, group string, field domain.CounterField, delta decimal.Decimal) error {
	if group == "" {
		return fmt.Errorf("%w: group counter requires a group", apperrors.ErrValidation)
	}
	return s.addToScope(ctx, domain.GroupScope(group), field, delta)
}

func (s *counterService) AddDaily(ctx context.Context, date time.Time, group string, field domain.CounterField, delta decimal.Decimal) error {
	if date.IsZero() {
		return fmt.Errorf("%w: daily counter requires a date", apperrors.ErrValidation)
	}
	return s.addToScope(ctx, domain.DailyScope(date, group), field, delta)
}

func (s *counterService) addToScope(ctx context.Context, scope domain.CounterScope, field domain.CounterField, delta decimal.Decimal) error {
	deltas, err := s.writableDeltas(ctx, []domain.FieldDelta{{Field: field, Amount: delta}})
	if err != nil || len(deltas) == 0 {
		return err
	}
	if err := s.counterRepo.ApplyCounterDeltas(ctx, scope, deltas); err != nil {
		s.LogError(ctx, err, "Failed to update counter", zap.String("scope", scope.Key()), zap.String("field", string(field)))
		return err
	}
	return nil
}

// Apply writes the mutation to its four rows in order. The rows written before a failure are
// returned with the error so the caller can revert exactly those.
func (s *counterService) Apply(ctx context.Context, mutation domain.CounterMutation) ([]domain.AppliedCounterChange, error) {
	deltas, err := s.writableDeltas(ctx, mutation.NonZero())
	if err != nil {
		return nil, err
	}
	if len(deltas) == 0 {
		return nil, nil
	}

	applied := make([]domain.AppliedCounterChange, 0, 4)
	for _, scope := range mutation.Scopes() {
		if err := s.counterRepo.ApplyCounterDeltas(ctx, scope, deltas); err != nil {
			s.LogError(ctx, err, "Failed to apply counter mutation",
				zap.String("scope", scope.Key()),
				zap.Int("rows_applied", len(applied)))
			return applied, fmt.Errorf("update counters %s: %w", scope, err)
		}
		applied = append(applied, domain.AppliedCounterChange{Scope: scope, Deltas: deltas})
	}
	return applied, nil
}

// Revert negates applied changes, newest first. Every row is attempted even if one fails.
func (s *counterService) Revert(ctx context.Context, applied []domain.AppliedCounterChange) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		change := applied[i]
		if err := s.counterRepo.ApplyCounterDeltas(ctx, change.Scope, domain.NegateDeltas(change.Deltas)); err != nil {
			s.LogError(ctx, err, "Failed to revert counter row", zap.String("scope", change.Scope.Key()))
			errs = append(errs, fmt.Errorf("revert counters %s: %w", change.Scope, err))
		}
	}
	return errors.Join(errs...)
}

// writableDeltas drops zero deltas, rejects unknown fields and skips the legacy field on
// stores that predate it.
func (s *counterService) writableDeltas(ctx context.Context, deltas []domain.FieldDelta) ([]domain.FieldDelta, error) {
	out := make([]domain.FieldDelta, 0, len(deltas))
	for _, d := range deltas {
		if !d.Field.IsValid() {
			return nil, fmt.Errorf("%w: unknown counter field %q", apperrors.ErrValidation, d.Field)
		}
		if d.Amount.IsZero() {
			continue
		}
		if d.Field == domain.LegacyCounterField {
			ok, err := s.SupportsField(ctx, d.Field)
			if err != nil {
				return nil, err
			}
			if !ok {
				s.LogDebug(ctx, "Skipping counter field missing from store", zap.String("field", string(d.Field)))
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *counterService) SupportsField(ctx context.Context, field domain.CounterField) (bool, error) {
	s.mu.Lock()
	ok, cached := s.supported[field]
	s.mu.Unlock()
	if cached {
		return ok, nil
	}

	ok, err := s.counterRepo.SupportsField(ctx, field)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.supported[field] = ok
	s.mu.Unlock()
	return ok, nil
}

// GetCounter returns the row of a scope; a row never written reads as all zeros.
func (s *counterService) GetCounter(ctx context.Context, scope domain.CounterScope) (*domain.CounterRow, error) {
	row, err := s.counterRepo.FindCounter(ctx, scope)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.CounterRow{Scope: scope, Values: domain.CounterValues{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// QueryCounters reads rows for a scope kind. Daily queries without a group read the
// all-groups rows so that Total never counts a day twice.
func (s *counterService) QueryCounters(ctx context.Context, query domain.CounterQuery) (*domain.CounterReport, error) {
	var rows []domain.CounterRow
	switch query.Kind {
	case domain.ScopeGlobal:
		row, err := s.GetCounter(ctx, domain.GlobalScope())
		if err != nil {
			return nil, err
		}
		rows = []domain.CounterRow{*row}
	case domain.ScopeGroup:
		if query.Group != nil {
			row, err := s.GetCounter(ctx, domain.GroupScope(*query.Group))
			if err != nil {
				return nil, err
			}
			rows = []domain.CounterRow{*row}
			break
		}
		var err error
		if rows, err = s.counterRepo.ListGroupCounters(ctx); err != nil {
			return nil, err
		}
	case domain.ScopeDaily:
		if query.From == nil || query.To == nil {
			return nil, fmt.Errorf("%w: daily counters require a date range", apperrors.ErrValidation)
		}
		if query.To.Before(*query.From) {
			return nil, fmt.Errorf("%w: date range ends before it starts", apperrors.ErrValidation)
		}
		group := ""
		if query.Group != nil {
			group = *query.Group
		}
		var err error
		if rows, err = s.counterRepo.ListDailyCounters(ctx, *query.From, *query.To, &group); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown counter scope %q", apperrors.ErrValidation, query.Kind)
	}
	return &domain.CounterReport{Rows: rows, Total: domain.SumCounterRows(rows)}, nil
}
