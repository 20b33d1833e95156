package pgsql

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/loan_ledger/internal/models"
	"github.com/SscSPs/loan_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const historyColumns = `id, actor_id, chat_id, operation_type, payload, business_date, created_at, is_undone, undone_at, undo_of`

type PgxHistoryRepository struct {
	BaseRepository
}

// newPgxHistoryRepository creates a new repository for the operation history.
func newPgxHistoryRepository(pool *pgxpool.Pool) *PgxHistoryRepository {
	return &PgxHistoryRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.HistoryRepositoryFacade = (*PgxHistoryRepository)(nil)

func scanHistoryEntry(row pgx.Row) (domain.HistoryEntry, error) {
	var m models.HistoryEntry
	err := row.Scan(
		&m.ID,
		&m.ActorID,
		&m.ChatID,
		&m.OperationType,
		&m.Payload,
		&m.BusinessDate,
		&m.CreatedAt,
		&m.IsUndone,
		&m.UndoneAt,
		&m.UndoOf,
	)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	return mapping.ToDomainHistoryEntry(m)
}

// SaveHistoryEntry appends an entry.
func (r *PgxHistoryRepository) SaveHistoryEntry(ctx context.Context, entry domain.HistoryEntry) error {
	m, err := mapping.ToModelHistoryEntry(entry)
	if err != nil {
		return apperrors.NewAppError(http.StatusBadRequest, "invalid history entry", err)
	}
	query := `INSERT INTO operation_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err = r.Pool.Exec(ctx, query,
		m.ID, m.ActorID, m.ChatID, m.OperationType, m.Payload, m.BusinessDate,
		m.CreatedAt, m.IsUndone, m.UndoneAt, m.UndoOf,
	)
	if err != nil {
		return wrapWriteError(err, "failed to save history entry "+m.ID)
	}
	return nil
}

// FindHistoryEntryByID retrieves an entry.
func (r *PgxHistoryRepository) FindHistoryEntryByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	e, err := scanHistoryEntry(r.Pool.QueryRow(ctx, `SELECT `+historyColumns+` FROM operation_history WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("history entry", id)
		}
		return nil, apperrors.NewStorageError("failed to find history entry "+id, err)
	}
	return &e, nil
}

// ListHistoryEntries returns an actor's entries for a business day, newest first.
// seq breaks ties between entries written within the same timestamp.
func (r *PgxHistoryRepository) ListHistoryEntries(ctx context.Context, actorID string, chatID string, businessDate time.Time) ([]domain.HistoryEntry, error) {
	w := &whereBuilder{}
	w.add("actor_id = $%d", actorID)
	w.add("business_date = $%d", domain.TruncateToDate(businessDate))
	if chatID != "" {
		w.add("chat_id = $%d", chatID)
	}
	query := `SELECT ` + historyColumns + ` FROM operation_history` + w.String() + ` ORDER BY created_at DESC, seq DESC;`

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list history entries", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan history entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read history entries", err)
	}
	return entries, nil
}

// MarkHistoryEntryUndone flags an entry. The conditional update makes a second flag a conflict.
func (r *PgxHistoryRepository) MarkHistoryEntryUndone(ctx context.Context, id string, undoneAt time.Time) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE operation_history SET is_undone = TRUE, undone_at = $2 WHERE id = $1 AND NOT is_undone;`, id, undoneAt)
	if err != nil {
		return apperrors.NewStorageError("failed to mark history entry "+id+" undone", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.FindHistoryEntryByID(ctx, id); err != nil {
		return err
	}
	return apperrors.NewAppError(http.StatusConflict, "history entry "+id+" is already undone", nil)
}
