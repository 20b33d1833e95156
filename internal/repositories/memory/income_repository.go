package memory

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/loan_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// IncomeRepository is an append-only in-memory ledger.
type IncomeRepository struct {
	mu      sync.RWMutex
	records []domain.IncomeRecord
	byID    map[string]int
}

// NewIncomeRepository creates an empty in-memory ledger.
func NewIncomeRepository() *IncomeRepository {
	return &IncomeRepository{byID: make(map[string]int)}
}

var _ portsrepo.IncomeRepositoryFacade = (*IncomeRepository)(nil)

func (r *IncomeRepository) FindIncomeRecordByID(_ context.Context, id string) (*domain.IncomeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("income record", id)
	}
	rec := r.records[idx]
	return &rec, nil
}

func (r *IncomeRepository) ListIncomeRecords(_ context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid next token", err)
		}
		cursor = &c
	}

	r.mu.RLock()
	matched := make([]domain.IncomeRecord, 0)
	for _, rec := range r.records {
		if !filter.Matches(rec) {
			continue
		}
		if cursor != nil && !cursor.After(rec.Date, rec.CreatedAt, rec.ID) {
			continue
		}
		matched = append(matched, rec)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		c := pagination.Cursor{Date: a.Date, CreatedAt: a.CreatedAt, ID: a.ID}
		return c.After(b.Date, b.CreatedAt, b.ID)
	})

	if limit <= 0 || len(matched) <= limit {
		return matched, nil, nil
	}
	page := matched[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.Date, last.CreatedAt, last.ID)
	return page, &token, nil
}

type incomeTotalsKey struct {
	date  time.Time
	group string
	typ   domain.IncomeType
}

func (r *IncomeRepository) AggregateIncome(_ context.Context, filter domain.IncomeFilter) ([]domain.IncomeTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	buckets := make(map[incomeTotalsKey]*domain.IncomeTotals)
	keys := make([]incomeTotalsKey, 0)
	for _, rec := range r.records {
		if !filter.Matches(rec) {
			continue
		}
		k := incomeTotalsKey{date: rec.Date, group: rec.OwnershipGroup, typ: rec.Type}
		t, ok := buckets[k]
		if !ok {
			t = &domain.IncomeTotals{Date: rec.Date, OwnershipGroup: rec.OwnershipGroup, Type: rec.Type, Amount: decimal.Zero, Negative: decimal.Zero}
			buckets[k] = t
			keys = append(keys, k)
		}
		t.Amount = t.Amount.Add(rec.Amount)
		if rec.Amount.IsNegative() {
			t.Negative = t.Negative.Add(rec.Amount)
		}
		t.Count++
	}

	result := make([]domain.IncomeTotals, 0, len(keys))
	for _, k := range keys {
		result = append(result, *buckets[k])
	}
	return result, nil
}

func (r *IncomeRepository) SaveIncomeRecord(_ context.Context, record domain.IncomeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[record.ID]; exists {
		return apperrors.NewAppError(http.StatusConflict, "income record "+record.ID+" already exists", apperrors.ErrDuplicate)
	}
	r.byID[record.ID] = len(r.records)
	r.records = append(r.records, record)
	return nil
}

func (r *IncomeRepository) MarkIncomeRecordReversed(_ context.Context, id string, reversedBy string, reversedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return apperrors.NewNotFoundError("income record", id)
	}
	rec := &r.records[idx]
	if rec.IsReversed {
		return apperrors.NewAppError(http.StatusConflict, "income record "+id+" is already reversed", nil)
	}
	rec.IsReversed = true
	rec.ReversedAt = &reversedAt
	rec.ReversedBy = &reversedBy
	return nil
}
