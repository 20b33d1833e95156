package domain

import (
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// RepairPolicy controls how reconciliation treats corrections that leave a total negative.
type RepairPolicy string

const (
	// RepairStrict refuses corrections that would produce a negative total and flags them.
	RepairStrict RepairPolicy = "strict"
	// RepairUnconditional applies every correction.
	RepairUnconditional RepairPolicy = "unconditional"
)

// DiscrepancyStatus tracks what repair did with a discrepancy.
type DiscrepancyStatus string

const (
	DiscrepancyOpen         DiscrepancyStatus = "open"
	DiscrepancyCorrected    DiscrepancyStatus = "corrected"
	DiscrepancyManualReview DiscrepancyStatus = "manual_review"
)

// CounterDiscrepancy is one field whose stored value differs from the recomputed one.
type CounterDiscrepancy struct {
	Scope      CounterScope      `json:"scope"`
	Field      CounterField      `json:"field"`
	Expected   decimal.Decimal   `json:"expected"`
	Stored     decimal.Decimal   `json:"stored"`
	Difference decimal.Decimal   `json:"difference"`
	Status     DiscrepancyStatus `json:"status"`
	Reason     string            `json:"reason,omitempty"`
}

// PartitionDriftKind classifies replica drift.
type PartitionDriftKind string

const (
	// DriftMissing means the order belongs to the partition but has no replica row.
	DriftMissing PartitionDriftKind = "missing"
	// DriftStale means the partition holds a row for an order that no longer belongs to it.
	DriftStale PartitionDriftKind = "stale"
	// DriftOutdated means the replica row differs from the order row.
	DriftOutdated PartitionDriftKind = "outdated"
)

// PartitionDrift is one replica row out of sync with the order store.
type PartitionDrift struct {
	Partition PartitionRef       `json:"partition"`
	OrderID   string             `json:"orderID"`
	Kind      PartitionDriftKind `json:"kind"`
	Fixed     bool               `json:"fixed"`
}

// AuditReport is the outcome of recomputing counters and replicas from the sources of truth.
type AuditReport struct {
	From          time.Time            `json:"from"`
	To            time.Time            `json:"to"`
	Group         *string              `json:"group,omitempty"`
	RowsChecked   int                  `json:"rowsChecked"`
	Discrepancies []CounterDiscrepancy `json:"discrepancies"`
	Partitions    []PartitionDrift     `json:"partitions"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

// HasDrift reports whether anything disagrees with the sources of truth.
func (r AuditReport) HasDrift() bool {
	return len(r.Discrepancies) > 0 || len(r.Partitions) > 0
}

// Drift returns a DriftError when the audit found disagreements, nil otherwise.
func (r AuditReport) Drift() error {
	if !r.HasDrift() {
		return nil
	}
	return &apperrors.DriftError{Counters: len(r.Discrepancies), Partitions: len(r.Partitions)}
}

// RepairReport lists what a repair pass changed and what it refused to change.
type RepairReport struct {
	Audit           AuditReport          `json:"audit"`
	Corrected       []CounterDiscrepancy `json:"corrected"`
	ManualReview    []CounterDiscrepancy `json:"manualReview"`
	PartitionsFixed int                  `json:"partitionsFixed"`
	Policy          RepairPolicy         `json:"policy"`
}

// ExpectedLedgerValues folds ledger totals into the counter values they should have produced.
func ExpectedLedgerValues(totals []IncomeTotals) CounterValues {
	values := CounterValues{}
	for _, f := range LedgerFields {
		values[f] = decimal.Zero
	}
	for _, t := range totals {
		count := decimal.NewFromInt(t.Count)
		switch t.Type {
		case IncomeInterest:
			values[FieldInterestTotal] = values[FieldInterestTotal].Add(t.Amount)
		case IncomeCompleted:
			values[FieldCompletedAmount] = values[FieldCompletedAmount].Add(t.Amount)
			values[FieldCompletedCount] = values[FieldCompletedCount].Add(count)
		case IncomeBreachEnd:
			values[FieldBreachEndAmount] = values[FieldBreachEndAmount].Add(t.Amount)
			values[FieldBreachEndCount] = values[FieldBreachEndCount].Add(count)
		case IncomePrincipalReduction:
			values[FieldCompletedAmount] = values[FieldCompletedAmount].Add(t.Amount)
		case IncomeAdjustment:
			values[FieldAdjustmentTotal] = values[FieldAdjustmentTotal].Add(t.Amount)
			values[FieldExpenseAmount] = values[FieldExpenseAmount].Add(t.Negative.Abs())
		}
		values[FieldLiquidBalance] = values[FieldLiquidBalance].Add(t.Amount)
	}
	return values
}

// ExpectedStateValues folds order totals into the state balances they imply.
func ExpectedStateValues(totals []OrderTotals) CounterValues {
	values := CounterValues{}
	for _, f := range StateFields {
		values[f] = decimal.Zero
	}
	for _, t := range totals {
		count := decimal.NewFromInt(t.Count)
		switch t.State {
		case StateNormal:
			values[FieldValidAmount] = values[FieldValidAmount].Add(t.Amount)
			values[FieldValidCount] = values[FieldValidCount].Add(count)
		case StateOverdue:
			values[FieldValidAmount] = values[FieldValidAmount].Add(t.Amount)
			values[FieldValidCount] = values[FieldValidCount].Add(count)
			values[FieldOverdueAmount] = values[FieldOverdueAmount].Add(t.Amount)
			values[FieldOverdueCount] = values[FieldOverdueCount].Add(count)
		case StateBreach:
			values[FieldBreachAmount] = values[FieldBreachAmount].Add(t.Amount)
			values[FieldBreachCount] = values[FieldBreachCount].Add(count)
		}
	}
	return values
}

// ExpectedVolumeValues folds order totals into issue volumes by customer class.
func ExpectedVolumeValues(totals []OrderTotals) CounterValues {
	values := CounterValues{}
	for _, f := range VolumeFields {
		values[f] = decimal.Zero
	}
	for _, t := range totals {
		count := decimal.NewFromInt(t.Count)
		if t.CustomerClass == ClassReturning {
			values[FieldReturningClientAmount] = values[FieldReturningClientAmount].Add(t.IssuedAmount)
			values[FieldReturningClientCount] = values[FieldReturningClientCount].Add(count)
		} else {
			values[FieldNewClientAmount] = values[FieldNewClientAmount].Add(t.IssuedAmount)
			values[FieldNewClientCount] = values[FieldNewClientCount].Add(count)
		}
	}
	return values
}

// Merge copies every value of other into v.
func (v CounterValues) Merge(other CounterValues) CounterValues {
	for f, val := range other {
		v[f] = val
	}
	return v
}

// ReconcileRequest scopes an audit or repair. A nil Group covers every group and the
// all-groups rows.
type ReconcileRequest struct {
	From  time.Time
	To    time.Time
	Group *string
}
