package services

import (
	"context"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// HistoryRecorderSvc appends and reads operation history.
type HistoryRecorderSvc interface {
	// Record appends an entry and returns its id.
	Record(ctx context.Context, actorID string, chatID string, payload domain.OperationPayload) (string, error)

	// GetLast returns the most recent live entry of the actor in the chat on the business day.
	GetLast(ctx context.Context, actorID string, chatID string, businessDate time.Time) (*domain.HistoryEntry, error)

	// List returns the actor's entries in the chat on the business day, newest first.
	List(ctx context.Context, actorID string, chatID string, businessDate time.Time) ([]domain.HistoryEntry, error)
}

// UndoSvc reverses recorded operations.
type UndoSvc interface {
	// Undo reverses one entry and returns the undo entry it appended.
	Undo(ctx context.Context, entryID string, actorID string) (*domain.HistoryEntry, error)

	// UndoLast reverses the actor's latest live entry in the chat for today.
	UndoLast(ctx context.Context, actorID string, chatID string) (*domain.HistoryEntry, error)
}

// HistorySvcFacade combines all history service interfaces.
type HistorySvcFacade interface {
	HistoryRecorderSvc
	UndoSvc
}
