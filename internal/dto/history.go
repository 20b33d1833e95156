package dto

import (
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// UndoRequest asks to undo the actor's most recent operation in a chat, or one entry by id.
type UndoRequest struct {
	ChatID  string `json:"chatID" binding:"required_without=EntryID"`
	EntryID string `json:"entryID"`
}

// LastOperationParams are the query parameters of a last-operation lookup.
type LastOperationParams struct {
	ChatID string `form:"chatID" binding:"required"`
	Date   string `form:"date"`
}

// HistoryEntryResponse defines the data returned for a history entry.
type HistoryEntryResponse struct {
	ID            string                  `json:"id"`
	ActorID       string                  `json:"actorID"`
	ChatID        string                  `json:"chatID"`
	OperationType string                  `json:"operationType"`
	Payload       domain.OperationPayload `json:"payload"`
	BusinessDate  string                  `json:"businessDate"`
	CreatedAt     time.Time               `json:"createdAt"`
	IsUndone      bool                    `json:"isUndone"`
	UndoOf        *string                 `json:"undoOf,omitempty"`
}

// ToHistoryEntryResponse converts a domain.HistoryEntry to its DTO.
func ToHistoryEntryResponse(e *domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:            e.ID,
		ActorID:       e.ActorID,
		ChatID:        e.ChatID,
		OperationType: string(e.OperationType),
		Payload:       e.Payload,
		BusinessDate:  e.BusinessDate.Format(domain.DateLayout),
		CreatedAt:     e.CreatedAt,
		IsUndone:      e.IsUndone,
		UndoOf:        e.UndoOf,
	}
}
