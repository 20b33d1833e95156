package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrderID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "already canonical", raw: "S01-0001", want: "S01-0001"},
		{name: "lower case and padding", raw: "  s01-0002 ", want: "S01-0002"},
		{name: "inner whitespace collapsed", raw: "s01  0003", want: "S01-0003"},
		{name: "empty", raw: "   ", wantErr: domain.ErrEmptyOrderID},
		{name: "unsupported characters", raw: "S01/0004", wantErr: domain.ErrInvalidOrderID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.NormalizeOrderID(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeGroup(t *testing.T) {
	assert.Equal(t, domain.DefaultGroup, domain.NormalizeGroup(""))
	assert.Equal(t, domain.DefaultGroup, domain.NormalizeGroup("   "))
	assert.Equal(t, "S01", domain.NormalizeGroup(" s01 "))
}

func TestWeekdayBucketOf(t *testing.T) {
	assert.Equal(t, "monday", domain.WeekdayBucketOf(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "sunday", domain.WeekdayBucketOf(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.OrderState
		want     bool
	}{
		{domain.StateNormal, domain.StateOverdue, true},
		{domain.StateOverdue, domain.StateNormal, true},
		{domain.StateNormal, domain.StateBreach, true},
		{domain.StateOverdue, domain.StateBreach, true},
		{domain.StateBreach, domain.StateBreachEnd, true},
		{domain.StateNormal, domain.StateEnd, true},
		{domain.StateOverdue, domain.StateEnd, true},
		{domain.StateBreach, domain.StateEnd, false},
		{domain.StateBreach, domain.StateNormal, false},
		{domain.StateNormal, domain.StateBreachEnd, false},
		{domain.StateEnd, domain.StateNormal, false},
		{domain.StateBreachEnd, domain.StateBreach, false},
		{domain.StateNormal, domain.StateNormal, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	for _, terminal := range []domain.OrderState{domain.StateEnd, domain.StateBreachEnd} {
		for _, target := range domain.OrderStates {
			assert.False(t, domain.CanTransition(terminal, target), "%s must not leave", terminal)
		}
	}
}

func TestPartitionDiff(t *testing.T) {
	before := domain.Order{
		OrderID:        "S01-1",
		OwnershipGroup: "S01",
		WeekdayBucket:  "monday",
		CustomerClass:  domain.ClassNew,
		State:          domain.StateNormal,
		Amount:         decimal.NewFromInt(100),
	}
	after := before
	after.State = domain.StateOverdue

	upserts, removals := domain.PartitionDiff(&before, &after)
	assert.Len(t, upserts, len(domain.PartitionDimensions))
	assert.Equal(t, []domain.PartitionRef{{Dimension: domain.DimensionState, Key: "normal"}}, removals)
	assert.Contains(t, upserts, domain.PartitionRef{Dimension: domain.DimensionState, Key: "overdue"})

	upserts, removals = domain.PartitionDiff(&before, nil)
	assert.Empty(t, upserts)
	assert.Len(t, removals, len(domain.PartitionDimensions))
}

func TestSanitizePartitionKey(t *testing.T) {
	assert.Equal(t, "s01", domain.SanitizePartitionKey("S01"))
	assert.Equal(t, "grp_a_b", domain.SanitizePartitionKey("GRP-A.B"))
	assert.Equal(t, "none", domain.SanitizePartitionKey(""))
}

func TestOrderSearchCriteria_Matches(t *testing.T) {
	order := domain.Order{OrderID: "A", OwnershipGroup: "S01", State: domain.StateEnd}
	assert.False(t, domain.OrderSearchCriteria{}.Matches(order), "archived orders are hidden by default")
	assert.True(t, domain.OrderSearchCriteria{IncludeArchived: true}.Matches(order))

	end := domain.StateEnd
	assert.True(t, domain.OrderSearchCriteria{State: &end}.Matches(order), "asking for a terminal state includes it")
}
