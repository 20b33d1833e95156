package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of a loan order.
type OrderState string

const (
	StateNormal    OrderState = "normal"
	StateOverdue   OrderState = "overdue"
	StateBreach    OrderState = "breach"
	StateEnd       OrderState = "end"
	StateBreachEnd OrderState = "breach_end"
)

// OrderStates lists every known state.
var OrderStates = []OrderState{StateNormal, StateOverdue, StateBreach, StateEnd, StateBreachEnd}

// IsValid reports whether s is a known state.
func (s OrderState) IsValid() bool {
	switch s {
	case StateNormal, StateOverdue, StateBreach, StateEnd, StateBreachEnd:
		return true
	}
	return false
}

// IsTerminal reports whether the state archives the order.
func (s OrderState) IsTerminal() bool {
	return s == StateEnd || s == StateBreachEnd
}

// IsValidBucket reports whether orders in this state count towards the valid totals.
func (s OrderState) IsValidBucket() bool {
	return s == StateNormal || s == StateOverdue
}

// allowedTransitions is the closed transition table of the order state machine.
var allowedTransitions = map[OrderState][]OrderState{
	StateNormal:  {StateOverdue, StateBreach, StateEnd},
	StateOverdue: {StateNormal, StateBreach, StateEnd},
	StateBreach:  {StateBreachEnd},
}

// CanTransition reports whether an order may move from one state to another.
func CanTransition(from, to OrderState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedSources returns the states from which target can be reached.
func AllowedSources(target OrderState) []OrderState {
	var sources []OrderState
	for _, from := range OrderStates {
		if CanTransition(from, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// CustomerClass distinguishes first-time borrowers from repeat ones.
type CustomerClass string

const (
	ClassNew       CustomerClass = "new"
	ClassReturning CustomerClass = "returning"
)

// IsValid reports whether c is a known customer class.
func (c CustomerClass) IsValid() bool {
	return c == ClassNew || c == ClassReturning
}

// DefaultGroup is the ownership group assigned when none is given.
const DefaultGroup = "DEFAULT"

var (
	ErrEmptyOrderID   = errors.New("order id is empty")
	ErrInvalidOrderID = errors.New("order id contains unsupported characters")
)

var orderIDPattern = regexp.MustCompile(`^[A-Z0-9_-]{1,64}$`)

// NormalizeOrderID turns a business code into the canonical order identifier.
func NormalizeOrderID(raw string) (string, error) {
	id := strings.ToUpper(strings.Join(strings.Fields(raw), "-"))
	if id == "" {
		return "", ErrEmptyOrderID
	}
	if !orderIDPattern.MatchString(id) {
		return "", ErrInvalidOrderID
	}
	return id, nil
}

// NormalizeGroup trims and upper-cases a group code, falling back to DefaultGroup.
func NormalizeGroup(group string) string {
	g := strings.ToUpper(strings.TrimSpace(group))
	if g == "" {
		return DefaultGroup
	}
	return g
}

// WeekdayBucketOf derives the weekday bucket of an issue date.
func WeekdayBucketOf(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// Order is the normalized source-of-truth record of one loan.
type Order struct {
	OrderID        string          `json:"orderID"`
	ChatID         string          `json:"chatID"`
	OwnershipGroup string          `json:"ownershipGroup"`
	IssueDate      time.Time       `json:"issueDate"`
	WeekdayBucket  string          `json:"weekdayBucket"`
	CustomerClass  CustomerClass   `json:"customerClass"`
	IssuedAmount   decimal.Decimal `json:"issuedAmount"`
	Amount         decimal.Decimal `json:"amount"`
	State          OrderState      `json:"state"`
	AuditFields
}

// IsArchived reports whether the order reached a terminal state.
func (o Order) IsArchived() bool {
	return o.State.IsTerminal()
}

// OrderSearchCriteria filters order lookups. Nil fields do not filter.
type OrderSearchCriteria struct {
	State           *OrderState
	CustomerClass   *CustomerClass
	WeekdayBucket   *string
	OwnershipGroup  *string
	ChatID          *string
	IssuedFrom      *time.Time
	IssuedTo        *time.Time
	IncludeArchived bool
	Limit           int
}

// Matches reports whether the order satisfies every set criterion.
func (c OrderSearchCriteria) Matches(o Order) bool {
	if !c.IncludeArchived && o.IsArchived() && (c.State == nil || !c.State.IsTerminal()) {
		return false
	}
	if c.State != nil && o.State != *c.State {
		return false
	}
	if c.CustomerClass != nil && o.CustomerClass != *c.CustomerClass {
		return false
	}
	if c.WeekdayBucket != nil && o.WeekdayBucket != *c.WeekdayBucket {
		return false
	}
	if c.OwnershipGroup != nil && o.OwnershipGroup != *c.OwnershipGroup {
		return false
	}
	if c.ChatID != nil && o.ChatID != *c.ChatID {
		return false
	}
	if c.IssuedFrom != nil && o.IssueDate.Before(*c.IssuedFrom) {
		return false
	}
	if c.IssuedTo != nil && o.IssueDate.After(*c.IssuedTo) {
		return false
	}
	return true
}

// OrderTotals is one aggregation bucket of the order store.
type OrderTotals struct {
	OwnershipGroup string
	State          OrderState
	CustomerClass  CustomerClass
	IssueDate      time.Time
	Amount         decimal.Decimal
	IssuedAmount   decimal.Decimal
	Count          int64
}

// OrderAggregateFilter narrows an order aggregation.
type OrderAggregateFilter struct {
	OwnershipGroup *string
	IssuedFrom     *time.Time
	IssuedTo       *time.Time
}

// SortOrdersNewestFirst orders by issue date descending, then by id.
func SortOrdersNewestFirst(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].IssueDate.Equal(orders[j].IssueDate) {
			return orders[i].IssueDate.After(orders[j].IssueDate)
		}
		return orders[i].OrderID < orders[j].OrderID
	})
}
