package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// counterTables maps each scope kind to its table. Every table carries one numeric
// column per counter field plus the key columns of its scope.
var counterTables = map[domain.CounterScopeKind]string{
	domain.ScopeGlobal: "counters_global",
	domain.ScopeGroup:  "counters_group",
	domain.ScopeDaily:  "counters_daily",
}

// PgxCounterRepository increments counter rows with INSERT ... ON CONFLICT DO UPDATE.
type PgxCounterRepository struct {
	BaseRepository
	now func() time.Time

	mu      sync.Mutex
	columns map[domain.CounterField]bool // nil until loaded
}

// newPgxCounterRepository creates a new repository for the aggregate counters.
func newPgxCounterRepository(pool *pgxpool.Pool, now func() time.Time) *PgxCounterRepository {
	return &PgxCounterRepository{BaseRepository: BaseRepository{Pool: pool}, now: now}
}

var _ portsrepo.CounterRepositoryFacade = (*PgxCounterRepository)(nil)

func scopeKey(scope domain.CounterScope) (cols []string, args []any) {
	switch scope.Kind {
	case domain.ScopeGlobal:
		return []string{"counter_key"}, []any{domain.GlobalCounterKey}
	case domain.ScopeGroup:
		return []string{"ownership_group"}, []any{scope.Group}
	default:
		return []string{"business_date", "ownership_group"}, []any{scope.Date, scope.Group}
	}
}

// SupportsField reports whether all counter tables have a column for the field.
func (r *PgxCounterRepository) SupportsField(ctx context.Context, field domain.CounterField) (bool, error) {
	if !field.IsValid() {
		return false, nil
	}
	columns, err := r.loadColumns(ctx)
	if err != nil {
		return false, err
	}
	return columns[field], nil
}

func (r *PgxCounterRepository) loadColumns(ctx context.Context) (map[domain.CounterField]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.columns != nil {
		return r.columns, nil
	}

	query := `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ANY($1)
		GROUP BY column_name
		HAVING COUNT(*) = $2;`
	tables := make([]string, 0, len(counterTables))
	for _, t := range counterTables {
		tables = append(tables, t)
	}
	rows, err := r.Pool.Query(ctx, query, tables, len(tables))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read counter columns", err)
	}
	defer rows.Close()

	columns := make(map[domain.CounterField]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan counter column", err)
		}
		if f := domain.CounterField(name); f.IsValid() {
			columns[f] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read counter columns", err)
	}
	r.columns = columns
	return columns, nil
}

// supportedFields lists the known fields in declaration order.
func (r *PgxCounterRepository) supportedFields(ctx context.Context) ([]domain.CounterField, error) {
	columns, err := r.loadColumns(ctx)
	if err != nil {
		return nil, err
	}
	fields := make([]domain.CounterField, 0, len(columns))
	for _, f := range domain.CounterFields {
		if columns[f] {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func selectList(fields []domain.CounterField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = pgx.Identifier{string(f)}.Sanitize()
	}
	return strings.Join(names, ", ")
}

// scanCounterRow reads the key columns, updated_at and the field columns, in that order.
func scanCounterRow(row pgx.Row, kind domain.CounterScopeKind, fields []domain.CounterField) (domain.CounterRow, error) {
	var (
		key       string
		group     string
		date      time.Time
		updatedAt time.Time
	)
	values := make([]decimal.Decimal, len(fields))
	targets := make([]any, 0, len(fields)+3)
	switch kind {
	case domain.ScopeGlobal:
		targets = append(targets, &key)
	case domain.ScopeGroup:
		targets = append(targets, &group)
	default:
		targets = append(targets, &date, &group)
	}
	targets = append(targets, &updatedAt)
	for i := range values {
		targets = append(targets, &values[i])
	}
	if err := row.Scan(targets...); err != nil {
		return domain.CounterRow{}, err
	}

	out := domain.CounterRow{Values: domain.CounterValues{}, UpdatedAt: updatedAt}
	switch kind {
	case domain.ScopeGlobal:
		out.Scope = domain.GlobalScope()
	case domain.ScopeGroup:
		out.Scope = domain.GroupScope(group)
	default:
		out.Scope = domain.DailyScope(date, group)
	}
	for i, f := range fields {
		if !values[i].IsZero() {
			out.Values[f] = values[i]
		}
	}
	return out, nil
}

// FindCounter returns the row of a scope.
func (r *PgxCounterRepository) FindCounter(ctx context.Context, scope domain.CounterScope) (*domain.CounterRow, error) {
	fields, err := r.supportedFields(ctx)
	if err != nil {
		return nil, err
	}
	cols, args := scopeKey(scope)
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	query := fmt.Sprintf(`SELECT %s, updated_at, %s FROM %s WHERE %s;`,
		strings.Join(cols, ", "), selectList(fields), counterTables[scope.Kind], strings.Join(conds, " AND "))

	row, err := scanCounterRow(r.Pool.QueryRow(ctx, query, args...), scope.Kind, fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("counter", scope.Key())
		}
		return nil, apperrors.NewStorageError("failed to read counter "+scope.Key(), err)
	}
	return &row, nil
}

// ListGroupCounters returns every group row.
func (r *PgxCounterRepository) ListGroupCounters(ctx context.Context) ([]domain.CounterRow, error) {
	fields, err := r.supportedFields(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT ownership_group, updated_at, %s FROM counters_group ORDER BY ownership_group;`, selectList(fields))
	return r.queryRows(ctx, domain.ScopeGroup, fields, query)
}

// ListDailyCounters returns daily rows in the inclusive date range.
func (r *PgxCounterRepository) ListDailyCounters(ctx context.Context, from, to time.Time, group *string) ([]domain.CounterRow, error) {
	fields, err := r.supportedFields(ctx)
	if err != nil {
		return nil, err
	}
	w := &whereBuilder{}
	w.add("business_date >= $%d", domain.TruncateToDate(from))
	w.add("business_date <= $%d", domain.TruncateToDate(to))
	if group != nil {
		w.add("ownership_group = $%d", *group)
	}
	query := fmt.Sprintf(`SELECT business_date, ownership_group, updated_at, %s FROM counters_daily%s
		ORDER BY business_date, ownership_group;`, selectList(fields), w.String())
	return r.queryRows(ctx, domain.ScopeDaily, fields, query, w.args...)
}

func (r *PgxCounterRepository) queryRows(ctx context.Context, kind domain.CounterScopeKind, fields []domain.CounterField, query string, args ...any) ([]domain.CounterRow, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list "+string(kind)+" counters", err)
	}
	defer rows.Close()

	result := make([]domain.CounterRow, 0)
	for rows.Next() {
		row, err := scanCounterRow(rows, kind, fields)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan "+string(kind)+" counter", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read "+string(kind)+" counters", err)
	}
	return result, nil
}

// ApplyCounterDeltas adds the deltas to one row in a single upsert statement.
func (r *PgxCounterRepository) ApplyCounterDeltas(ctx context.Context, scope domain.CounterScope, deltas []domain.FieldDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	table := counterTables[scope.Kind]
	keyCols, args := scopeKey(scope)

	insertCols := append([]string{}, keyCols...)
	updates := make([]string, 0, len(deltas)+1)
	for _, d := range deltas {
		if !d.Field.IsValid() {
			return apperrors.NewAppError(http.StatusBadRequest, fmt.Sprintf("counter column %q does not exist", d.Field), nil)
		}
		col := pgx.Identifier{string(d.Field)}.Sanitize()
		insertCols = append(insertCols, col)
		updates = append(updates, fmt.Sprintf("%s = %s.%s + EXCLUDED.%s", col, table, col, col))
		args = append(args, d.Amount)
	}
	insertCols = append(insertCols, "updated_at")
	updates = append(updates, "updated_at = EXCLUDED.updated_at")
	args = append(args, r.now())

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (%s) DO UPDATE SET %s;`,
		table, strings.Join(insertCols, ", "), strings.Join(placeholders, ", "),
		strings.Join(keyCols, ", "), strings.Join(updates, ", "))

	if _, err := r.Pool.Exec(ctx, query, args...); err != nil {
		if pgErrorCode(err) == pgUndefinedColumn {
			return apperrors.NewAppError(http.StatusBadRequest, "counter column does not exist in "+table, err)
		}
		return apperrors.NewStorageError("failed to apply counter deltas to "+scope.Key(), err)
	}
	return nil
}
