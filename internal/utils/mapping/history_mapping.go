package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/models"
)

// ToModelHistoryEntry converts a domain HistoryEntry to a model HistoryEntry
func ToModelHistoryEntry(d domain.HistoryEntry) (models.HistoryEntry, error) {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("encode history payload: %w", err)
	}
	return models.HistoryEntry{
		ID:            d.ID,
		ActorID:       d.ActorID,
		ChatID:        d.ChatID,
		OperationType: string(d.OperationType),
		Payload:       payload,
		BusinessDate:  d.BusinessDate,
		CreatedAt:     d.CreatedAt,
		IsUndone:      d.IsUndone,
		UndoneAt:      nullTime(d.UndoneAt),
		UndoOf:        nullString(d.UndoOf),
	}, nil
}

// ToDomainHistoryEntry converts a model HistoryEntry to a domain HistoryEntry
func ToDomainHistoryEntry(m models.HistoryEntry) (domain.HistoryEntry, error) {
	var payload domain.OperationPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("decode history payload of %s: %w", m.ID, err)
	}
	return domain.HistoryEntry{
		ID:            m.ID,
		ActorID:       m.ActorID,
		ChatID:        m.ChatID,
		OperationType: domain.OperationType(m.OperationType),
		Payload:       payload,
		BusinessDate:  domain.TruncateToDate(m.BusinessDate),
		CreatedAt:     m.CreatedAt,
		IsUndone:      m.IsUndone,
		UndoneAt:      timePtr(m.UndoneAt),
		UndoOf:        stringPtr(m.UndoOf),
	}, nil
}
