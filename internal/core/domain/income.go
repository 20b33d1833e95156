package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeType classifies a ledger event.
type IncomeType string

const (
	IncomeInterest           IncomeType = "interest"
	IncomeCompleted          IncomeType = "completed"
	IncomeBreachEnd          IncomeType = "breach_end"
	IncomePrincipalReduction IncomeType = "principal_reduction"
	IncomeAdjustment         IncomeType = "adjustment"
)

// IncomeTypes lists the known kinds of income events.
var IncomeTypes = []IncomeType{
	IncomeInterest,
	IncomeCompleted,
	IncomeBreachEnd,
	IncomePrincipalReduction,
	IncomeAdjustment,
}

// IsValid reports whether t is a known income type.
func (t IncomeType) IsValid() bool {
	for _, known := range IncomeTypes {
		if known == t {
			return true
		}
	}
	return false
}

// RequiresOrder reports whether records of this type must reference an order.
func (t IncomeType) RequiresOrder() bool {
	return t != IncomeAdjustment
}

// IncomeRecord is one immutable ledger row. Only the reversal marker changes after insert.
type IncomeRecord struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	Type           IncomeType      `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	OwnershipGroup string          `json:"ownershipGroup"`
	OrderID        *string         `json:"orderID,omitempty"`
	OrderDate      *time.Time      `json:"orderDate,omitempty"`
	CustomerClass  *CustomerClass  `json:"customerClass,omitempty"`
	WeekdayBucket  *string         `json:"weekdayBucket,omitempty"`
	Note           string          `json:"note"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	IsReversed     bool            `json:"isReversed"`
	ReversedAt     *time.Time      `json:"reversedAt,omitempty"`
	ReversedBy     *string         `json:"reversedBy,omitempty"`
}

// NewIncomeRecord is the input of a ledger append. Date is a YYYY-MM-DD business date.
type NewIncomeRecord struct {
	Date           string
	Type           IncomeType
	Amount         decimal.Decimal
	OwnershipGroup string
	Order          *Order
	Note           string
	CreatedBy      string
}

// IncomeFilter narrows ledger reads. Reversed rows are excluded unless IncludeReversed is set.
type IncomeFilter struct {
	From            *time.Time
	To              *time.Time
	OwnershipGroup  *string
	Types           []IncomeType
	CustomerClass   *CustomerClass
	OrderID         *string
	IncludeReversed bool
}

// Matches reports whether r passes the filter.
func (f IncomeFilter) Matches(r IncomeRecord) bool {
	if r.IsReversed && !f.IncludeReversed {
		return false
	}
	if f.From != nil && r.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Date.After(*f.To) {
		return false
	}
	if f.OwnershipGroup != nil && r.OwnershipGroup != *f.OwnershipGroup {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == r.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CustomerClass != nil && (r.CustomerClass == nil || *r.CustomerClass != *f.CustomerClass) {
		return false
	}
	if f.OrderID != nil && (r.OrderID == nil || *r.OrderID != *f.OrderID) {
		return false
	}
	return true
}

// IncomeTotals is one (date, group, type) aggregation bucket of the ledger.
// Negative sums only the negative amounts of the bucket.
type IncomeTotals struct {
	Date           time.Time
	OwnershipGroup string
	Type           IncomeType
	Amount         decimal.Decimal
	Negative       decimal.Decimal
	Count          int64
}
