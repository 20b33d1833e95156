package models

import (
	"database/sql"
	"time"
)

// HistoryEntry is one row of the operation_history table. Payload is stored as JSONB.
type HistoryEntry struct {
	ID            string         `db:"id"`
	ActorID       string         `db:"actor_id"`
	ChatID        string         `db:"chat_id"`
	OperationType string         `db:"operation_type"`
	Payload       []byte         `db:"payload"`
	BusinessDate  time.Time      `db:"business_date"`
	CreatedAt     time.Time      `db:"created_at"`
	IsUndone      bool           `db:"is_undone"`
	UndoneAt      sql.NullTime   `db:"undone_at"`
	UndoOf        sql.NullString `db:"undo_of"`
}
