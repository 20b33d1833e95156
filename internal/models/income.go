package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// IncomeRecord is one row of the income_records table.
type IncomeRecord struct {
	ID             string          `db:"id"`
	Date           time.Time       `db:"record_date"`
	Type           string          `db:"income_type"`
	Amount         decimal.Decimal `db:"amount"`
	OwnershipGroup string          `db:"ownership_group"`
	OrderID        sql.NullString  `db:"order_id"`
	OrderDate      sql.NullTime    `db:"order_date"`
	CustomerClass  sql.NullString  `db:"customer_class"`
	WeekdayBucket  sql.NullString  `db:"weekday_bucket"`
	Note           string          `db:"note"`
	CreatedBy      string          `db:"created_by"`
	CreatedAt      time.Time       `db:"created_at"`
	IsReversed     bool            `db:"is_reversed"`
	ReversedAt     sql.NullTime    `db:"reversed_at"`
	ReversedBy     sql.NullString  `db:"reversed_by"`
}
