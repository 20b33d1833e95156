package dto

import (
	"fmt"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// ReconcileParams scopes an audit or a repair.
type ReconcileParams struct {
	From           string `form:"from" json:"from" binding:"required"`
	To             string `form:"to" json:"to" binding:"required"`
	OwnershipGroup string `form:"group" json:"group"`
}

// ToRequest converts the parameters into a reconciliation request.
func (p ReconcileParams) ToRequest() (domain.ReconcileRequest, error) {
	var req domain.ReconcileRequest
	from, err := domain.ParseBusinessDate(p.From)
	if err != nil {
		return req, fmt.Errorf("%w: from must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	to, err := domain.ParseBusinessDate(p.To)
	if err != nil {
		return req, fmt.Errorf("%w: to must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	if to.Before(from) {
		return req, fmt.Errorf("%w: to is before from", apperrors.ErrValidation)
	}
	req.From, req.To = from, to
	if p.OwnershipGroup != "" {
		group := domain.NormalizeGroup(p.OwnershipGroup)
		req.Group = &group
	}
	return req, nil
}
