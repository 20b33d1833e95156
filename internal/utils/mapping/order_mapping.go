package mapping

import (
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/models"
)

// ToModelOrder converts a domain Order to a model Order
func ToModelOrder(d domain.Order) models.Order {
	return models.Order{
		OrderID:        d.OrderID,
		ChatID:         d.ChatID,
		OwnershipGroup: d.OwnershipGroup,
		IssueDate:      d.IssueDate,
		WeekdayBucket:  d.WeekdayBucket,
		CustomerClass:  string(d.CustomerClass),
		IssuedAmount:   d.IssuedAmount,
		Amount:         d.Amount,
		State:          string(d.State),
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainOrder converts a model Order to a domain Order
func ToDomainOrder(m models.Order) domain.Order {
	return domain.Order{
		OrderID:        m.OrderID,
		ChatID:         m.ChatID,
		OwnershipGroup: m.OwnershipGroup,
		IssueDate:      domain.TruncateToDate(m.IssueDate),
		WeekdayBucket:  m.WeekdayBucket,
		CustomerClass:  domain.CustomerClass(m.CustomerClass),
		IssuedAmount:   m.IssuedAmount,
		Amount:         m.Amount,
		State:          domain.OrderState(m.State),
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}
