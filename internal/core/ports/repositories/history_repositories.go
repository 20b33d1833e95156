package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// HistoryRepositoryFacade stores the operation history used for audit and undo.
type HistoryRepositoryFacade interface {
	// SaveHistoryEntry appends an entry.
	SaveHistoryEntry(ctx context.Context, entry domain.HistoryEntry) error

	// FindHistoryEntryByID retrieves an entry.
	FindHistoryEntryByID(ctx context.Context, id string) (*domain.HistoryEntry, error)

	// ListHistoryEntries returns an actor's entries for a business day, newest first.
	// An empty chatID returns the entries of every chat.
	ListHistoryEntries(ctx context.Context, actorID string, chatID string, businessDate time.Time) ([]domain.HistoryEntry, error)

	// MarkHistoryEntryUndone flags an entry. An entry that is already undone yields ErrStateConflict.
	MarkHistoryEntryUndone(ctx context.Context, id string, undoneAt time.Time) error
}
