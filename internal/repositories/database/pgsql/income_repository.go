package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/loan_ledger/internal/models"
	"github.com/SscSPs/loan_ledger/internal/utils/mapping"
	"github.com/SscSPs/loan_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incomeColumns = `id, record_date, income_type, amount, ownership_group, order_id, order_date,
	customer_class, weekday_bucket, note, created_by, created_at, is_reversed, reversed_at, reversed_by`

type PgxIncomeRepository struct {
	BaseRepository
}

// newPgxIncomeRepository creates a new repository for the income ledger.
func newPgxIncomeRepository(pool *pgxpool.Pool) *PgxIncomeRepository {
	return &PgxIncomeRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.IncomeRepositoryFacade = (*PgxIncomeRepository)(nil)

func scanIncomeRecord(row pgx.Row) (domain.IncomeRecord, error) {
	var m models.IncomeRecord
	err := row.Scan(
		&m.ID,
		&m.Date,
		&m.Type,
		&m.Amount,
		&m.OwnershipGroup,
		&m.OrderID,
		&m.OrderDate,
		&m.CustomerClass,
		&m.WeekdayBucket,
		&m.Note,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.IsReversed,
		&m.ReversedAt,
		&m.ReversedBy,
	)
	if err != nil {
		return domain.IncomeRecord{}, err
	}
	return mapping.ToDomainIncomeRecord(m), nil
}

func incomeWhere(filter domain.IncomeFilter) *whereBuilder {
	w := &whereBuilder{}
	if !filter.IncludeReversed {
		w.addRaw("NOT is_reversed")
	}
	if filter.From != nil {
		w.add("record_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("record_date <= $%d", *filter.To)
	}
	if filter.OwnershipGroup != nil {
		w.add("ownership_group = $%d", *filter.OwnershipGroup)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		w.add("income_type = ANY($%d)", types)
	}
	if filter.CustomerClass != nil {
		w.add("customer_class = $%d", *filter.CustomerClass)
	}
	if filter.OrderID != nil {
		w.add("order_id = $%d", *filter.OrderID)
	}
	return w
}

// FindIncomeRecordByID retrieves a record regardless of its reversal flag.
func (r *PgxIncomeRepository) FindIncomeRecordByID(ctx context.Context, id string) (*domain.IncomeRecord, error) {
	rec, err := scanIncomeRecord(r.Pool.QueryRow(ctx, `SELECT `+incomeColumns+` FROM income_records WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("income record", id)
		}
		return nil, apperrors.NewStorageError("failed to find income record "+id, err)
	}
	return &rec, nil
}

// ListIncomeRecords retrieves a page of records using token-based pagination.
func (r *PgxIncomeRepository) ListIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error) {
	w := incomeWhere(filter)
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid next token", err)
		}
		w.args = append(w.args, cursor.Date, cursor.CreatedAt, cursor.ID)
		n := len(w.args)
		w.addRaw(fmt.Sprintf("(record_date, created_at, id) < ($%d, $%d, $%d)", n-2, n-1, n))
	}

	query := `SELECT ` + incomeColumns + ` FROM income_records` + w.String() +
		` ORDER BY record_date DESC, created_at DESC, id DESC`
	if limit > 0 {
		// one extra row tells whether another page exists
		w.args = append(w.args, limit+1)
		query += fmt.Sprintf(" LIMIT $%d", len(w.args))
	}

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("failed to list income records", err)
	}
	defer rows.Close()

	records := make([]domain.IncomeRecord, 0)
	for rows.Next() {
		rec, err := scanIncomeRecord(rows)
		if err != nil {
			return nil, nil, apperrors.NewStorageError("failed to scan income record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewStorageError("failed to read income records", err)
	}

	if limit <= 0 || len(records) <= limit {
		return records, nil, nil
	}
	page := records[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.Date, last.CreatedAt, last.ID)
	return page, &token, nil
}

// AggregateIncome sums the filtered records by date, group and type.
func (r *PgxIncomeRepository) AggregateIncome(ctx context.Context, filter domain.IncomeFilter) ([]domain.IncomeTotals, error) {
	w := incomeWhere(filter)
	query := `SELECT record_date, ownership_group, income_type,
			SUM(amount), SUM(LEAST(amount, 0)), COUNT(*)
		FROM income_records` + w.String() + `
		GROUP BY record_date, ownership_group, income_type;`

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to aggregate income", err)
	}
	defer rows.Close()

	totals := make([]domain.IncomeTotals, 0)
	for rows.Next() {
		var t domain.IncomeTotals
		var typ string
		if err := rows.Scan(&t.Date, &t.OwnershipGroup, &typ, &t.Amount, &t.Negative, &t.Count); err != nil {
			return nil, apperrors.NewStorageError("failed to scan income totals", err)
		}
		t.Type = domain.IncomeType(typ)
		t.Date = domain.TruncateToDate(t.Date)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read income totals", err)
	}
	return totals, nil
}

// SaveIncomeRecord appends a record.
func (r *PgxIncomeRepository) SaveIncomeRecord(ctx context.Context, record domain.IncomeRecord) error {
	m := mapping.ToModelIncomeRecord(record)
	query := `INSERT INTO income_records (` + incomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`
	_, err := r.Pool.Exec(ctx, query,
		m.ID, m.Date, m.Type, m.Amount, m.OwnershipGroup, m.OrderID, m.OrderDate,
		m.CustomerClass, m.WeekdayBucket, m.Note, m.CreatedBy, m.CreatedAt,
		m.IsReversed, m.ReversedAt, m.ReversedBy,
	)
	if err != nil {
		return wrapWriteError(err, "failed to save income record "+m.ID)
	}
	return nil
}

// MarkIncomeRecordReversed flags a record as reversed inside a row-locking transaction.
func (r *PgxIncomeRepository) MarkIncomeRecordReversed(ctx context.Context, id string, reversedBy string, reversedAt time.Time) (err error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	var reversed bool
	if err = tx.QueryRow(ctx, `SELECT is_reversed FROM income_records WHERE id = $1 FOR UPDATE;`, id).Scan(&reversed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("income record", id)
		}
		return apperrors.NewStorageError("failed to lock income record "+id, err)
	}
	if reversed {
		err = apperrors.NewAppError(http.StatusConflict, "income record "+id+" is already reversed", nil)
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE income_records SET is_reversed = TRUE, reversed_at = $2, reversed_by = $3 WHERE id = $1;`,
		id, reversedAt, reversedBy); err != nil {
		return apperrors.NewStorageError("failed to reverse income record "+id, err)
	}
	return r.Commit(ctx, tx)
}
