package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordAdjustmentRequest is the input of a manual ledger adjustment.
type RecordAdjustmentRequest struct {
	OwnershipGroup string          `json:"ownershipGroup" validate:"max=32"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Note           string          `json:"note" binding:"required" validate:"required,max=500"`
	ChatID         string          `json:"chatID" validate:"max=128"`
}

// IncomeRecordResponse defines the data returned for a ledger row.
type IncomeRecordResponse struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	OwnershipGroup string          `json:"ownershipGroup"`
	OrderID        *string         `json:"orderID,omitempty"`
	CustomerClass  *string         `json:"customerClass,omitempty"`
	WeekdayBucket  *string         `json:"weekdayBucket,omitempty"`
	Note           string          `json:"note,omitempty"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	IsReversed     bool            `json:"isReversed"`
}

// ToIncomeRecordResponse converts a domain.IncomeRecord to its DTO.
func ToIncomeRecordResponse(r *domain.IncomeRecord) IncomeRecordResponse {
	resp := IncomeRecordResponse{
		ID:             r.ID,
		Date:           r.Date.Format(domain.DateLayout),
		Type:           string(r.Type),
		Amount:         r.Amount,
		OwnershipGroup: r.OwnershipGroup,
		OrderID:        r.OrderID,
		WeekdayBucket:  r.WeekdayBucket,
		Note:           r.Note,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		IsReversed:     r.IsReversed,
	}
	if r.CustomerClass != nil {
		class := string(*r.CustomerClass)
		resp.CustomerClass = &class
	}
	return resp
}

// ListIncomeParams are the query parameters of a ledger listing.
type ListIncomeParams struct {
	From            string   `form:"from"`
	To              string   `form:"to"`
	OwnershipGroup  string   `form:"group"`
	Types           []string `form:"type"`
	CustomerClass   string   `form:"customerClass"`
	OrderID         string   `form:"orderID"`
	IncludeReversed bool     `form:"includeReversed"`
	Limit           int      `form:"limit" binding:"omitempty,min=1,max=500"`
	NextToken       *string  `form:"nextToken"`
}

// ToFilter converts the parameters into a ledger filter.
func (p ListIncomeParams) ToFilter() (domain.IncomeFilter, error) {
	filter := domain.IncomeFilter{IncludeReversed: p.IncludeReversed}
	var err error
	if filter.From, err = optionalDate(p.From, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = optionalDate(p.To, "to"); err != nil {
		return filter, err
	}
	if p.OwnershipGroup != "" {
		group := domain.NormalizeGroup(p.OwnershipGroup)
		filter.OwnershipGroup = &group
	}
	for _, t := range p.Types {
		incomeType := domain.IncomeType(t)
		if !incomeType.IsValid() {
			return filter, fmt.Errorf("%w: unknown income type %q", apperrors.ErrValidation, t)
		}
		filter.Types = append(filter.Types, incomeType)
	}
	if p.CustomerClass != "" {
		class := domain.CustomerClass(p.CustomerClass)
		if !class.IsValid() {
			return filter, fmt.Errorf("%w: unknown customer class %q", apperrors.ErrValidation, p.CustomerClass)
		}
		filter.CustomerClass = &class
	}
	if p.OrderID != "" {
		orderID, err := domain.NormalizeOrderID(p.OrderID)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		filter.OrderID = &orderID
	}
	return filter, nil
}

// ListIncomeResponse wraps a page of ledger rows.
type ListIncomeResponse struct {
	Records   []IncomeRecordResponse `json:"records"`
	NextToken *string                `json:"nextToken,omitempty"`
}
