package mapping

import (
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/models"
)

// ToModelIncomeRecord converts a domain IncomeRecord to a model IncomeRecord
func ToModelIncomeRecord(d domain.IncomeRecord) models.IncomeRecord {
	m := models.IncomeRecord{
		ID:             d.ID,
		Date:           d.Date,
		Type:           string(d.Type),
		Amount:         d.Amount,
		OwnershipGroup: d.OwnershipGroup,
		OrderID:        nullString(d.OrderID),
		OrderDate:      nullTime(d.OrderDate),
		WeekdayBucket:  nullString(d.WeekdayBucket),
		Note:           d.Note,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		IsReversed:     d.IsReversed,
		ReversedAt:     nullTime(d.ReversedAt),
		ReversedBy:     nullString(d.ReversedBy),
	}
	if d.CustomerClass != nil {
		class := string(*d.CustomerClass)
		m.CustomerClass = nullString(&class)
	}
	return m
}

// ToDomainIncomeRecord converts a model IncomeRecord to a domain IncomeRecord
func ToDomainIncomeRecord(m models.IncomeRecord) domain.IncomeRecord {
	d := domain.IncomeRecord{
		ID:             m.ID,
		Date:           domain.TruncateToDate(m.Date),
		Type:           domain.IncomeType(m.Type),
		Amount:         m.Amount,
		OwnershipGroup: m.OwnershipGroup,
		OrderID:        stringPtr(m.OrderID),
		OrderDate:      timePtr(m.OrderDate),
		WeekdayBucket:  stringPtr(m.WeekdayBucket),
		Note:           m.Note,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
		IsReversed:     m.IsReversed,
		ReversedAt:     timePtr(m.ReversedAt),
		ReversedBy:     stringPtr(m.ReversedBy),
	}
	if m.CustomerClass.Valid {
		class := domain.CustomerClass(m.CustomerClass.String)
		d.CustomerClass = &class
	}
	return d
}
