package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the input of order creation.
type CreateOrderRequest struct {
	OrderID        string               `json:"orderID" binding:"required" validate:"required,max=64"`
	ChatID         string               `json:"chatID" binding:"required" validate:"required,max=128"`
	OwnershipGroup string               `json:"ownershipGroup" validate:"max=32"`
	IssueDate      string               `json:"issueDate" binding:"required" validate:"required,datetime=2006-01-02"`
	CustomerClass  domain.CustomerClass `json:"customerClass" binding:"required" validate:"required,oneof=new returning"`
	Amount         decimal.Decimal      `json:"amount" binding:"required"`
}

// TransitionStateRequest asks for a state change.
type TransitionStateRequest struct {
	TargetState domain.OrderState `json:"targetState" binding:"required" validate:"required,oneof=normal overdue breach end breach_end"`
}

// AmountRequest carries the amount of an interest payment or a principal reduction.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// OrderResponse defines the data returned for an order.
type OrderResponse struct {
	OrderID        string          `json:"orderID"`
	ChatID         string          `json:"chatID"`
	OwnershipGroup string          `json:"ownershipGroup"`
	IssueDate      string          `json:"issueDate"`
	WeekdayBucket  string          `json:"weekdayBucket"`
	CustomerClass  string          `json:"customerClass"`
	IssuedAmount   decimal.Decimal `json:"issuedAmount"`
	Amount         decimal.Decimal `json:"amount"`
	State          string          `json:"state"`
	CreatedAt      time.Time       `json:"createdAt"`
	CreatedBy      string          `json:"createdBy"`
	LastUpdatedAt  time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy  string          `json:"lastUpdatedBy"`
}

// ToOrderResponse converts a domain.Order to OrderResponse DTO.
func ToOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		OrderID:        o.OrderID,
		ChatID:         o.ChatID,
		OwnershipGroup: o.OwnershipGroup,
		IssueDate:      o.IssueDate.Format(domain.DateLayout),
		WeekdayBucket:  o.WeekdayBucket,
		CustomerClass:  string(o.CustomerClass),
		IssuedAmount:   o.IssuedAmount,
		Amount:         o.Amount,
		State:          string(o.State),
		CreatedAt:      o.CreatedAt,
		CreatedBy:      o.CreatedBy,
		LastUpdatedAt:  o.LastUpdatedAt,
		LastUpdatedBy:  o.LastUpdatedBy,
	}
}

// ToOrderResponses converts a slice of domain.Order to []OrderResponse.
func ToOrderResponses(orders []domain.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

// SearchOrdersParams are the query parameters of an order search.
type SearchOrdersParams struct {
	State           string `form:"state"`
	CustomerClass   string `form:"customerClass"`
	WeekdayBucket   string `form:"weekday"`
	OwnershipGroup  string `form:"group"`
	ChatID          string `form:"chatID"`
	IssuedFrom      string `form:"issuedFrom"`
	IssuedTo        string `form:"issuedTo"`
	IncludeArchived bool   `form:"includeArchived"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToCriteria converts the parameters into search criteria.
func (p SearchOrdersParams) ToCriteria() (domain.OrderSearchCriteria, error) {
	criteria := domain.OrderSearchCriteria{IncludeArchived: p.IncludeArchived, Limit: p.Limit}
	if p.State != "" {
		state := domain.OrderState(p.State)
		if !state.IsValid() {
			return criteria, fmt.Errorf("%w: unknown state %q", apperrors.ErrValidation, p.State)
		}
		criteria.State = &state
	}
	if p.CustomerClass != "" {
		class := domain.CustomerClass(p.CustomerClass)
		if !class.IsValid() {
			return criteria, fmt.Errorf("%w: unknown customer class %q", apperrors.ErrValidation, p.CustomerClass)
		}
		criteria.CustomerClass = &class
	}
	if p.WeekdayBucket != "" {
		criteria.WeekdayBucket = &p.WeekdayBucket
	}
	if p.OwnershipGroup != "" {
		group := domain.NormalizeGroup(p.OwnershipGroup)
		criteria.OwnershipGroup = &group
	}
	if p.ChatID != "" {
		criteria.ChatID = &p.ChatID
	}
	var err error
	if criteria.IssuedFrom, err = optionalDate(p.IssuedFrom, "issuedFrom"); err != nil {
		return criteria, err
	}
	if criteria.IssuedTo, err = optionalDate(p.IssuedTo, "issuedTo"); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func optionalDate(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := domain.ParseBusinessDate(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", apperrors.ErrValidation, name)
	}
	return &t, nil
}
