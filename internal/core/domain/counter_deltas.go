package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// CreationDeltas are the counter changes of issuing an order.
func CreationDeltas(o Order) []FieldDelta {
	deltas := []FieldDelta{
		{Field: FieldValidAmount, Amount: o.Amount},
		{Field: FieldValidCount, Amount: one},
	}
	if o.CustomerClass == ClassReturning {
		deltas = append(deltas,
			FieldDelta{Field: FieldReturningClientAmount, Amount: o.IssuedAmount},
			FieldDelta{Field: FieldReturningClientCount, Amount: one})
	} else {
		deltas = append(deltas,
			FieldDelta{Field: FieldNewClientAmount, Amount: o.IssuedAmount},
			FieldDelta{Field: FieldNewClientCount, Amount: one})
	}
	return deltas
}

// leaveBucket returns the deltas that remove amount (and optionally one order) from the
// bucket of state.
func leaveBucket(state OrderState, amount decimal.Decimal, count bool) []FieldDelta {
	var deltas []FieldDelta
	add := func(amountField, countField CounterField) {
		deltas = append(deltas, FieldDelta{Field: amountField, Amount: amount.Neg()})
		if count {
			deltas = append(deltas, FieldDelta{Field: countField, Amount: one.Neg()})
		}
	}
	switch state {
	case StateNormal:
		add(FieldValidAmount, FieldValidCount)
	case StateOverdue:
		add(FieldValidAmount, FieldValidCount)
		add(FieldOverdueAmount, FieldOverdueCount)
	case StateBreach:
		add(FieldBreachAmount, FieldBreachCount)
	}
	return deltas
}

// TransitionEffect describes the side effects of a state change.
type TransitionEffect struct {
	Deltas []FieldDelta
	// Income is the ledger event the transition produces, empty when none.
	Income IncomeType
}

// TransitionDeltas computes the counter deltas and ledger event of moving an order with the
// given outstanding amount from one state to another. Closing an order whose principal was fully
// repaid produces no ledger event.
func TransitionDeltas(from, to OrderState, amount decimal.Decimal) (TransitionEffect, error) {
	if !CanTransition(from, to) {
		return TransitionEffect{}, fmt.Errorf("transition %s -> %s is not allowed", from, to)
	}
	switch {
	case from == StateNormal && to == StateOverdue:
		return TransitionEffect{Deltas: []FieldDelta{
			{Field: FieldOverdueAmount, Amount: amount},
			{Field: FieldOverdueCount, Amount: one},
		}}, nil
	case from == StateOverdue && to == StateNormal:
		return TransitionEffect{Deltas: []FieldDelta{
			{Field: FieldOverdueAmount, Amount: amount.Neg()},
			{Field: FieldOverdueCount, Amount: one.Neg()},
		}}, nil
	case to == StateBreach:
		deltas := leaveBucket(from, amount, true)
		deltas = append(deltas,
			FieldDelta{Field: FieldBreachAmount, Amount: amount},
			FieldDelta{Field: FieldBreachCount, Amount: one})
		return TransitionEffect{Deltas: deltas}, nil
	case to == StateBreachEnd:
		return closingEffect(from, amount, IncomeBreachEnd), nil
	case to == StateEnd:
		return closingEffect(from, amount, IncomeCompleted), nil
	}
	return TransitionEffect{}, fmt.Errorf("transition %s -> %s has no counter mapping", from, to)
}

func closingEffect(from OrderState, amount decimal.Decimal, income IncomeType) TransitionEffect {
	deltas := leaveBucket(from, amount, true)
	if amount.IsZero() {
		return TransitionEffect{Deltas: deltas}
	}
	deltas = append(deltas, IncomeDeltas(income, amount)...)
	return TransitionEffect{Deltas: deltas, Income: income}
}

// PrincipalReductionDeltas moves amount out of the bucket of state into completed income.
func PrincipalReductionDeltas(state OrderState, amount decimal.Decimal) []FieldDelta {
	deltas := leaveBucket(state, amount, false)
	return append(deltas, IncomeDeltas(IncomePrincipalReduction, amount)...)
}

// IncomeDeltas are the ledger-derived counter changes of one income record.
func IncomeDeltas(t IncomeType, amount decimal.Decimal) []FieldDelta {
	switch t {
	case IncomeInterest:
		return []FieldDelta{
			{Field: FieldInterestTotal, Amount: amount},
			{Field: FieldLiquidBalance, Amount: amount},
		}
	case IncomeCompleted:
		return []FieldDelta{
			{Field: FieldCompletedAmount, Amount: amount},
			{Field: FieldCompletedCount, Amount: one},
			{Field: FieldLiquidBalance, Amount: amount},
		}
	case IncomeBreachEnd:
		return []FieldDelta{
			{Field: FieldBreachEndAmount, Amount: amount},
			{Field: FieldBreachEndCount, Amount: one},
			{Field: FieldLiquidBalance, Amount: amount},
		}
	case IncomePrincipalReduction:
		return []FieldDelta{
			{Field: FieldCompletedAmount, Amount: amount},
			{Field: FieldLiquidBalance, Amount: amount},
		}
	case IncomeAdjustment:
		deltas := []FieldDelta{
			{Field: FieldAdjustmentTotal, Amount: amount},
			{Field: FieldLiquidBalance, Amount: amount},
		}
		if amount.IsNegative() {
			deltas = append(deltas, FieldDelta{Field: FieldExpenseAmount, Amount: amount.Abs()})
		}
		return deltas
	}
	return nil
}
