package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType tags a history entry and selects its reversal routine.
type OperationType string

const (
	OpOrderCreated       OperationType = "order_created"
	OpStateChanged       OperationType = "state_changed"
	OpOrderCompleted     OperationType = "order_completed"
	OpBreachCompleted    OperationType = "breach_completed"
	OpInterestRecorded   OperationType = "interest_recorded"
	OpPrincipalReduced   OperationType = "principal_reduced"
	OpAdjustmentRecorded OperationType = "adjustment_recorded"
	OpUndo               OperationType = "undo"
)

// IsUndoable reports whether entries of this type may be reversed.
func (t OperationType) IsUndoable() bool {
	switch t {
	case OpOrderCreated, OpStateChanged, OpOrderCompleted, OpBreachCompleted,
		OpInterestRecorded, OpPrincipalReduced, OpAdjustmentRecorded:
		return true
	}
	return false
}

// OperationTypeForTransition picks the history tag of a state change.
func OperationTypeForTransition(to OrderState) OperationType {
	switch to {
	case StateEnd:
		return OpOrderCompleted
	case StateBreachEnd:
		return OpBreachCompleted
	}
	return OpStateChanged
}

// OperationPayload is the self-describing body of a history entry. Kind mirrors the entry's
// operation type; the remaining fields are populated as the kind requires.
type OperationPayload struct {
	Kind           OperationType    `json:"kind"`
	OrderID        string           `json:"orderID,omitempty"`
	FromState      OrderState       `json:"fromState,omitempty"`
	ToState        OrderState       `json:"toState,omitempty"`
	PrevAmount     *decimal.Decimal `json:"prevAmount,omitempty"`
	NewAmount      *decimal.Decimal `json:"newAmount,omitempty"`
	IncomeRecordID string           `json:"incomeRecordID,omitempty"`
	IncomeAmount   *decimal.Decimal `json:"incomeAmount,omitempty"`
	Counters       *CounterMutation `json:"counters,omitempty"`
	UndoneEntryID  string           `json:"undoneEntryID,omitempty"`
	Note           string           `json:"note,omitempty"`
}

// HistoryEntry is one append-only record of an externally triggered mutation.
type HistoryEntry struct {
	ID            string           `json:"id"`
	ActorID       string           `json:"actorID"`
	ChatID        string           `json:"chatID"`
	OperationType OperationType    `json:"operationType"`
	Payload       OperationPayload `json:"payload"`
	BusinessDate  time.Time        `json:"businessDate"`
	CreatedAt     time.Time        `json:"createdAt"`
	IsUndone      bool             `json:"isUndone"`
	UndoneAt      *time.Time       `json:"undoneAt,omitempty"`
	UndoOf        *string          `json:"undoOf,omitempty"`
}

// IsLive reports whether the entry is a still-effective, undoable operation.
func (e HistoryEntry) IsLive() bool {
	return !e.IsUndone && e.OperationType.IsUndoable()
}

// ConsecutiveUndos counts the undo entries at the head of an actor's day, newest first.
// Operations that were themselves undone do not break the chain; any live operation does.
func ConsecutiveUndos(newestFirst []HistoryEntry) int {
	count := 0
	for _, e := range newestFirst {
		switch {
		case e.OperationType == OpUndo:
			count++
		case e.IsUndone:
			continue
		default:
			return count
		}
	}
	return count
}
