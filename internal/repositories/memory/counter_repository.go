package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
)

// CounterRepository keeps counter rows keyed by scope.
type CounterRepository struct {
	mu          sync.RWMutex
	rows        map[string]domain.CounterRow
	unsupported map[domain.CounterField]bool
	now         func() time.Time
}

// CounterOption configures a CounterRepository.
type CounterOption func(*CounterRepository)

// WithoutLegacyField simulates a store deployed before the legacy column existed.
func WithoutLegacyField() CounterOption {
	return func(r *CounterRepository) {
		r.unsupported[domain.LegacyCounterField] = true
	}
}

// WithCounterClock overrides the clock used for UpdatedAt.
func WithCounterClock(now func() time.Time) CounterOption {
	return func(r *CounterRepository) {
		r.now = now
	}
}

// NewCounterRepository creates an empty in-memory counter store.
func NewCounterRepository(opts ...CounterOption) *CounterRepository {
	r := &CounterRepository{
		rows:        make(map[string]domain.CounterRow),
		unsupported: make(map[domain.CounterField]bool),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ portsrepo.CounterRepositoryFacade = (*CounterRepository)(nil)

func (r *CounterRepository) FindCounter(_ context.Context, scope domain.CounterScope) (*domain.CounterRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[scope.Key()]
	if !ok {
		return nil, apperrors.NewNotFoundError("counter", scope.Key())
	}
	cp := copyRow(row)
	return &cp, nil
}

func (r *CounterRepository) ListGroupCounters(_ context.Context) ([]domain.CounterRow, error) {
	return r.list(func(s domain.CounterScope) bool { return s.Kind == domain.ScopeGroup }), nil
}

func (r *CounterRepository) ListDailyCounters(_ context.Context, from, to time.Time, group *string) ([]domain.CounterRow, error) {
	return r.list(func(s domain.CounterScope) bool {
		if s.Kind != domain.ScopeDaily || s.Date.Before(from) || s.Date.After(to) {
			return false
		}
		return group == nil || s.Group == *group
	}), nil
}

func (r *CounterRepository) SupportsField(_ context.Context, field domain.CounterField) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return field.IsValid() && !r.unsupported[field], nil
}

func (r *CounterRepository) ApplyCounterDeltas(_ context.Context, scope domain.CounterScope, deltas []domain.FieldDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range deltas {
		if !d.Field.IsValid() || r.unsupported[d.Field] {
			return apperrors.NewAppError(http.StatusBadRequest, fmt.Sprintf("counter column %q does not exist", d.Field), nil)
		}
	}

	row, ok := r.rows[scope.Key()]
	if !ok {
		row = domain.CounterRow{Scope: scope, Values: domain.CounterValues{}}
	}
	for _, d := range deltas {
		row.Values[d.Field] = row.Values.Get(d.Field).Add(d.Amount)
	}
	row.UpdatedAt = r.now()
	r.rows[scope.Key()] = row
	return nil
}

func (r *CounterRepository) list(keep func(domain.CounterScope) bool) []domain.CounterRow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CounterRow, 0)
	for _, row := range r.rows {
		if keep(row.Scope) {
			result = append(result, copyRow(row))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Scope, result[j].Scope
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Group < b.Group
	})
	return result
}

func copyRow(row domain.CounterRow) domain.CounterRow {
	values := make(domain.CounterValues, len(row.Values))
	for f, v := range row.Values {
		values[f] = v
	}
	row.Values = values
	return row
}
