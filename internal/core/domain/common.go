package domain

import "time"

// AuditFields holds standard audit information for domain entities.
// CreatedBy and LastUpdatedBy carry the actor identity supplied by the caller.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ParseBusinessDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseBusinessDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// TruncateToDate drops the clock part of t, keeping the calendar date it has in its own location.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
