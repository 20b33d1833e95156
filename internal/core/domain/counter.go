package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CounterField names one running total. Names are persisted column names and never repurposed.
type CounterField string

const (
	FieldValidAmount           CounterField = "valid_amount"
	FieldValidCount            CounterField = "valid_count"
	FieldOverdueAmount         CounterField = "overdue_amount"
	FieldOverdueCount          CounterField = "overdue_count"
	FieldBreachAmount          CounterField = "breach_amount"
	FieldBreachCount           CounterField = "breach_count"
	FieldCompletedAmount       CounterField = "completed_amount"
	FieldCompletedCount        CounterField = "completed_count"
	FieldBreachEndAmount       CounterField = "breach_end_amount"
	FieldBreachEndCount        CounterField = "breach_end_count"
	FieldInterestTotal         CounterField = "interest_total"
	FieldNewClientAmount       CounterField = "new_client_amount"
	FieldNewClientCount        CounterField = "new_client_count"
	FieldReturningClientAmount CounterField = "returning_client_amount"
	FieldReturningClientCount  CounterField = "returning_client_count"
	FieldLiquidBalance         CounterField = "liquid_balance"
	FieldAdjustmentTotal       CounterField = "adjustment_total"
	FieldExpenseAmount         CounterField = "expense_amount"
)

// CounterFields lists every counter column in storage order.
var CounterFields = []CounterField{
	FieldValidAmount, FieldValidCount,
	FieldOverdueAmount, FieldOverdueCount,
	FieldBreachAmount, FieldBreachCount,
	FieldCompletedAmount, FieldCompletedCount,
	FieldBreachEndAmount, FieldBreachEndCount,
	FieldInterestTotal,
	FieldNewClientAmount, FieldNewClientCount,
	FieldReturningClientAmount, FieldReturningClientCount,
	FieldLiquidBalance,
	FieldAdjustmentTotal,
	FieldExpenseAmount,
}

// LegacyCounterField is the column added after the counter tables were first deployed.
// Rows of stores that predate it silently skip updates to it.
const LegacyCounterField = FieldExpenseAmount

// IsValid reports whether f is a known counter column.
func (f CounterField) IsValid() bool {
	for _, known := range CounterFields {
		if known == f {
			return true
		}
	}
	return false
}

// MayBeNegative reports whether the field is a signed balance rather than a total.
func (f CounterField) MayBeNegative() bool {
	return f == FieldLiquidBalance || f == FieldAdjustmentTotal
}

// StateFields are balances derived from current order states.
var StateFields = []CounterField{
	FieldValidAmount, FieldValidCount,
	FieldOverdueAmount, FieldOverdueCount,
	FieldBreachAmount, FieldBreachCount,
}

// LedgerFields are totals derived from income records.
var LedgerFields = []CounterField{
	FieldCompletedAmount, FieldCompletedCount,
	FieldBreachEndAmount, FieldBreachEndCount,
	FieldInterestTotal,
	FieldLiquidBalance,
	FieldAdjustmentTotal,
	FieldExpenseAmount,
}

// VolumeFields are issue volumes derived from orders by issue date.
var VolumeFields = []CounterField{
	FieldNewClientAmount, FieldNewClientCount,
	FieldReturningClientAmount, FieldReturningClientCount,
}

// CounterScopeKind is the granularity of a counter row.
type CounterScopeKind string

const (
	ScopeGlobal CounterScopeKind = "global"
	ScopeGroup  CounterScopeKind = "group"
	ScopeDaily  CounterScopeKind = "daily"
)

// GlobalCounterKey is the constant primary key of the single global row.
const GlobalCounterKey = "global"

// CounterScope addresses one counter row. Daily rows with an empty Group aggregate all groups.
type CounterScope struct {
	Kind  CounterScopeKind `json:"kind"`
	Group string           `json:"group,omitempty"`
	Date  time.Time        `json:"date,omitempty"`
}

func GlobalScope() CounterScope {
	return CounterScope{Kind: ScopeGlobal}
}

func GroupScope(group string) CounterScope {
	return CounterScope{Kind: ScopeGroup, Group: group}
}

func DailyScope(date time.Time, group string) CounterScope {
	return CounterScope{Kind: ScopeDaily, Group: group, Date: TruncateToDate(date)}
}

// Key renders a stable map key for the scope.
func (s CounterScope) Key() string {
	switch s.Kind {
	case ScopeGlobal:
		return GlobalCounterKey
	case ScopeGroup:
		return "group:" + s.Group
	default:
		return "daily:" + s.Date.Format(DateLayout) + ":" + s.Group
	}
}

func (s CounterScope) String() string {
	return s.Key()
}

// CounterValues maps fields to their running totals.
type CounterValues map[CounterField]decimal.Decimal

// Get returns the value of f, zero when absent.
func (v CounterValues) Get(f CounterField) decimal.Decimal {
	if val, ok := v[f]; ok {
		return val
	}
	return decimal.Zero
}

// CounterRow is one stored aggregate row.
type CounterRow struct {
	Scope     CounterScope  `json:"scope"`
	Values    CounterValues `json:"values"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// FieldDelta is a signed change to one counter field.
type FieldDelta struct {
	Field  CounterField    `json:"field"`
	Amount decimal.Decimal `json:"amount"`
}

// CounterMutation is the set of deltas one operation applies to the global row, the
// group row, the daily group row and the daily all-groups row.
type CounterMutation struct {
	Date   time.Time    `json:"date"`
	Group  string       `json:"group"`
	Deltas []FieldDelta `json:"deltas"`
}

// Scopes returns the rows a mutation touches, in application order.
func (m CounterMutation) Scopes() []CounterScope {
	return []CounterScope{
		GlobalScope(),
		GroupScope(m.Group),
		DailyScope(m.Date, m.Group),
		DailyScope(m.Date, ""),
	}
}

// NonZero drops zero deltas.
func (m CounterMutation) NonZero() []FieldDelta {
	out := make([]FieldDelta, 0, len(m.Deltas))
	for _, d := range m.Deltas {
		if !d.Amount.IsZero() {
			out = append(out, d)
		}
	}
	return out
}

// Negate returns the mutation that exactly cancels m.
func (m CounterMutation) Negate() CounterMutation {
	return CounterMutation{Date: m.Date, Group: m.Group, Deltas: NegateDeltas(m.Deltas)}
}

// NegateDeltas flips the sign of every delta.
func NegateDeltas(deltas []FieldDelta) []FieldDelta {
	out := make([]FieldDelta, len(deltas))
	for i, d := range deltas {
		out[i] = FieldDelta{Field: d.Field, Amount: d.Amount.Neg()}
	}
	return out
}

// AppliedCounterChange records the deltas actually written to one row.
type AppliedCounterChange struct {
	Scope  CounterScope `json:"scope"`
	Deltas []FieldDelta `json:"deltas"`
}

// CounterQuery selects counter rows for reading. From and To bound daily rows only.
type CounterQuery struct {
	Kind  CounterScopeKind
	Group *string
	From  *time.Time
	To    *time.Time
}

// CounterReport is the answer to a CounterQuery; Total sums every returned row.
type CounterReport struct {
	Rows  []CounterRow  `json:"rows"`
	Total CounterValues `json:"total"`
}

// SumCounterRows adds up the values of rows field by field.
func SumCounterRows(rows []CounterRow) CounterValues {
	total := CounterValues{}
	for _, row := range rows {
		for f, v := range row.Values {
			total[f] = total.Get(f).Add(v)
		}
	}
	return total
}
