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
)

// HistoryRepository is an append-only in-memory operation log.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
	byID    map[string]int
}

// NewHistoryRepository creates an empty in-memory history log.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{byID: make(map[string]int)}
}

var _ portsrepo.HistoryRepositoryFacade = (*HistoryRepository)(nil)

func (r *HistoryRepository) SaveHistoryEntry(_ context.Context, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[entry.ID]; exists {
		return apperrors.NewAppError(http.StatusConflict, "history entry "+entry.ID+" already exists", apperrors.ErrDuplicate)
	}
	r.byID[entry.ID] = len(r.entries)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *HistoryRepository) FindHistoryEntryByID(_ context.Context, id string) (*domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("history entry", id)
	}
	e := r.entries[idx]
	return &e, nil
}

func (r *HistoryRepository) ListHistoryEntries(_ context.Context, actorID string, chatID string, businessDate time.Time) ([]domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := domain.TruncateToDate(businessDate)
	result := make([]domain.HistoryEntry, 0)
	// Walk backwards so equal timestamps keep newest-append-first order.
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.ActorID != actorID || !e.BusinessDate.Equal(day) {
			continue
		}
		if chatID != "" && e.ChatID != chatID {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *HistoryRepository) MarkHistoryEntryUndone(_ context.Context, id string, undoneAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return apperrors.NewNotFoundError("history entry", id)
	}
	e := &r.entries[idx]
	if e.IsUndone {
		return apperrors.NewAppError(http.StatusConflict, "history entry "+id+" is already undone", nil)
	}
	e.IsUndone = true
	e.UndoneAt = &undoneAt
	return nil
}
