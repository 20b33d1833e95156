package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/loan_ledger/internal/models"
	"github.com/SscSPs/loan_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// orderColumns is shared by the orders table and every partition replica table.
const orderColumns = `order_id, chat_id, ownership_group, issue_date, weekday_bucket, customer_class,
	issued_amount, amount, state, created_at, created_by, last_updated_at, last_updated_by`

type PgxOrderRepository struct {
	BaseRepository
}

// newPgxOrderRepository creates a new repository for order data.
func newPgxOrderRepository(pool *pgxpool.Pool) *PgxOrderRepository {
	return &PgxOrderRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.OrderRepositoryFacade = (*PgxOrderRepository)(nil)

func scanOrder(row pgx.Row) (domain.Order, error) {
	var m models.Order
	err := row.Scan(
		&m.OrderID,
		&m.ChatID,
		&m.OwnershipGroup,
		&m.IssueDate,
		&m.WeekdayBucket,
		&m.CustomerClass,
		&m.IssuedAmount,
		&m.Amount,
		&m.State,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Order{}, err
	}
	return mapping.ToDomainOrder(m), nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func orderArgs(m models.Order) []any {
	return []any{
		m.OrderID, m.ChatID, m.OwnershipGroup, m.IssueDate, m.WeekdayBucket, m.CustomerClass,
		m.IssuedAmount, m.Amount, m.State, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	}
}

// FindOrderByID retrieves an order by its ID.
func (r *PgxOrderRepository) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1;`
	o, err := scanOrder(r.Pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("order", orderID)
		}
		return nil, apperrors.NewStorageError("failed to find order "+orderID, err)
	}
	return &o, nil
}

// FindActiveOrderByChatID retrieves the non-archived order bound to a chat.
func (r *PgxOrderRepository) FindActiveOrderByChatID(ctx context.Context, chatID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE chat_id = $1 AND state NOT IN ($2, $3)
		LIMIT 1;`
	o, err := scanOrder(r.Pool.QueryRow(ctx, query, chatID, domain.StateEnd, domain.StateBreachEnd))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("active order for chat", chatID)
		}
		return nil, apperrors.NewStorageError("failed to find active order for chat "+chatID, err)
	}
	return &o, nil
}

// whereBuilder accumulates positional predicates.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// SearchOrders scans the order store, newest issue date first.
func (r *PgxOrderRepository) SearchOrders(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, error) {
	w := &whereBuilder{}
	if criteria.State != nil {
		w.add("state = $%d", *criteria.State)
	} else if !criteria.IncludeArchived {
		// an explicit terminal state selects archived rows on its own
		w.addRaw(fmt.Sprintf("state NOT IN ('%s', '%s')", domain.StateEnd, domain.StateBreachEnd))
	}
	if criteria.CustomerClass != nil {
		w.add("customer_class = $%d", *criteria.CustomerClass)
	}
	if criteria.WeekdayBucket != nil {
		w.add("weekday_bucket = $%d", *criteria.WeekdayBucket)
	}
	if criteria.OwnershipGroup != nil {
		w.add("ownership_group = $%d", *criteria.OwnershipGroup)
	}
	if criteria.ChatID != nil {
		w.add("chat_id = $%d", *criteria.ChatID)
	}
	if criteria.IssuedFrom != nil {
		w.add("issue_date >= $%d", *criteria.IssuedFrom)
	}
	if criteria.IssuedTo != nil {
		w.add("issue_date <= $%d", *criteria.IssuedTo)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + w.String() + ` ORDER BY issue_date DESC, order_id ASC`
	if criteria.Limit > 0 {
		w.args = append(w.args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(w.args))
	}

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to search orders", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan orders", err)
	}
	return orders, nil
}

// ListOrdersAfter pages through every order by identifier.
func (r *PgxOrderRepository) ListOrdersAfter(ctx context.Context, afterOrderID string, group *string, limit int) ([]domain.Order, error) {
	w := &whereBuilder{}
	w.add("order_id > $%d", afterOrderID)
	if group != nil {
		w.add("ownership_group = $%d", *group)
	}
	query := `SELECT ` + orderColumns + ` FROM orders` + w.String() + ` ORDER BY order_id ASC`
	if limit > 0 {
		w.args = append(w.args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(w.args))
	}

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list orders", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan orders", err)
	}
	return orders, nil
}

// AggregateOrders sums amounts and counts by group, state, class and issue date.
func (r *PgxOrderRepository) AggregateOrders(ctx context.Context, filter domain.OrderAggregateFilter) ([]domain.OrderTotals, error) {
	w := &whereBuilder{}
	if filter.OwnershipGroup != nil {
		w.add("ownership_group = $%d", *filter.OwnershipGroup)
	}
	if filter.IssuedFrom != nil {
		w.add("issue_date >= $%d", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		w.add("issue_date <= $%d", *filter.IssuedTo)
	}
	query := `SELECT ownership_group, state, customer_class, issue_date,
			SUM(amount), SUM(issued_amount), COUNT(*)
		FROM orders` + w.String() + `
		GROUP BY ownership_group, state, customer_class, issue_date;`

	rows, err := r.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to aggregate orders", err)
	}
	defer rows.Close()

	totals := make([]domain.OrderTotals, 0)
	for rows.Next() {
		var t domain.OrderTotals
		var state, class string
		if err := rows.Scan(&t.OwnershipGroup, &state, &class, &t.IssueDate, &t.Amount, &t.IssuedAmount, &t.Count); err != nil {
			return nil, apperrors.NewStorageError("failed to scan order totals", err)
		}
		t.State = domain.OrderState(state)
		t.CustomerClass = domain.CustomerClass(class)
		t.IssueDate = domain.TruncateToDate(t.IssueDate)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read order totals", err)
	}
	return totals, nil
}

// SaveOrder inserts a new order. The partial unique index on chat_id rejects a second active order.
func (r *PgxOrderRepository) SaveOrder(ctx context.Context, order domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`
	if _, err := r.Pool.Exec(ctx, query, orderArgs(mapping.ToModelOrder(order))...); err != nil {
		return wrapWriteError(err, "failed to save order "+order.OrderID)
	}
	return nil
}

// UpdateOrder replaces the mutable columns when state and amount still match.
func (r *PgxOrderRepository) UpdateOrder(ctx context.Context, order domain.Order, expectedState domain.OrderState, expectedAmount decimal.Decimal) error {
	m := mapping.ToModelOrder(order)
	query := `UPDATE orders
		SET chat_id = $2, ownership_group = $3, weekday_bucket = $4, customer_class = $5,
			amount = $6, state = $7, last_updated_at = $8, last_updated_by = $9
		WHERE order_id = $1 AND state = $10 AND amount = $11;`
	tag, err := r.Pool.Exec(ctx, query,
		m.OrderID, m.ChatID, m.OwnershipGroup, m.WeekdayBucket, m.CustomerClass,
		m.Amount, m.State, m.LastUpdatedAt, m.LastUpdatedBy,
		expectedState, expectedAmount,
	)
	if err != nil {
		return wrapWriteError(err, "failed to update order "+order.OrderID)
	}
	if tag.RowsAffected() == 0 {
		return r.lostWrite(ctx, order.OrderID, string(order.State))
	}
	return nil
}

// DeleteOrder removes an order under the same optimistic check as UpdateOrder.
func (r *PgxOrderRepository) DeleteOrder(ctx context.Context, orderID string, expectedState domain.OrderState, expectedAmount decimal.Decimal) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM orders WHERE order_id = $1 AND state = $2 AND amount = $3;`,
		orderID, expectedState, expectedAmount)
	if err != nil {
		return apperrors.NewStorageError("failed to delete order "+orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.lostWrite(ctx, orderID, "delete")
	}
	return nil
}

// lostWrite explains a conditional write that matched no row.
func (r *PgxOrderRepository) lostWrite(ctx context.Context, orderID, attempted string) error {
	current, err := r.FindOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	return apperrors.NewConcurrentModificationError(orderID, string(current.State), attempted)
}
