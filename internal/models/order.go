package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one row of the orders table and of every partition replica table.
type Order struct {
	OrderID        string          `db:"order_id"`
	ChatID         string          `db:"chat_id"`
	OwnershipGroup string          `db:"ownership_group"`
	IssueDate      time.Time       `db:"issue_date"`
	WeekdayBucket  string          `db:"weekday_bucket"`
	CustomerClass  string          `db:"customer_class"`
	IssuedAmount   decimal.Decimal `db:"issued_amount"`
	Amount         decimal.Decimal `db:"amount"`
	State          string          `db:"state"`
	AuditFields
}
