package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GetCountersParams are the query parameters of a counter read.
type GetCountersParams struct {
	Scope          string `form:"scope" binding:"required,oneof=global group daily"`
	OwnershipGroup string `form:"group"`
	From           string `form:"from"`
	To             string `form:"to"`
}

// ToQuery converts the parameters into a counter query.
func (p GetCountersParams) ToQuery() (domain.CounterQuery, error) {
	query := domain.CounterQuery{Kind: domain.CounterScopeKind(p.Scope)}
	if p.OwnershipGroup != "" {
		group := domain.NormalizeGroup(p.OwnershipGroup)
		query.Group = &group
	}
	var err error
	if query.From, err = optionalDate(p.From, "from"); err != nil {
		return query, err
	}
	if query.To, err = optionalDate(p.To, "to"); err != nil {
		return query, err
	}
	if query.Kind == domain.ScopeDaily && (query.From == nil || query.To == nil) {
		return query, fmt.Errorf("%w: daily counters need from and to", apperrors.ErrValidation)
	}
	return query, nil
}

// CounterRowResponse defines the data returned for one counter row.
type CounterRowResponse struct {
	Scope     string                     `json:"scope"`
	Group     string                     `json:"group,omitempty"`
	Date      string                     `json:"date,omitempty"`
	Values    map[string]decimal.Decimal `json:"values"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}

// CountersResponse wraps counter rows and their sum.
type CountersResponse struct {
	Rows  []CounterRowResponse       `json:"rows"`
	Total map[string]decimal.Decimal `json:"total"`
}

func toValueMap(values domain.CounterValues) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(values))
	for f, v := range values {
		out[string(f)] = v
	}
	return out
}

// ToCountersResponse converts a counter report to its DTO.
func ToCountersResponse(report *domain.CounterReport) CountersResponse {
	resp := CountersResponse{
		Rows:  make([]CounterRowResponse, len(report.Rows)),
		Total: toValueMap(report.Total),
	}
	for i, row := range report.Rows {
		r := CounterRowResponse{
			Scope:     string(row.Scope.Kind),
			Group:     row.Scope.Group,
			Values:    toValueMap(row.Values),
			UpdatedAt: row.UpdatedAt,
		}
		if row.Scope.Kind == domain.ScopeDaily {
			r.Date = row.Scope.Date.Format(domain.DateLayout)
		}
		resp.Rows[i] = r
	}
	return resp
}
