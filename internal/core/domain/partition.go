package domain

import (
	"strings"
)

// PartitionDimension names one partitioning scheme of the order replicas.
type PartitionDimension string

const (
	DimensionState         PartitionDimension = "state"
	DimensionCustomerClass PartitionDimension = "customer_class"
	DimensionWeekday       PartitionDimension = "weekday"
	DimensionGroup         PartitionDimension = "group"
)

// PartitionDimensions lists every maintained dimension.
var PartitionDimensions = []PartitionDimension{
	DimensionState,
	DimensionCustomerClass,
	DimensionWeekday,
	DimensionGroup,
}

// IsValid reports whether d is a maintained dimension.
func (d PartitionDimension) IsValid() bool {
	for _, dim := range PartitionDimensions {
		if dim == d {
			return true
		}
	}
	return false
}

// PartitionRef addresses one partition replica table.
type PartitionRef struct {
	Dimension PartitionDimension `json:"dimension"`
	Key       string             `json:"key"`
}

// SanitizePartitionKey maps an arbitrary dimension value onto [a-z0-9_].
func SanitizePartitionKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}

// PartitionValue returns the raw value of the order for a dimension.
func (o Order) PartitionValue(dim PartitionDimension) string {
	switch dim {
	case DimensionState:
		return string(o.State)
	case DimensionCustomerClass:
		return string(o.CustomerClass)
	case DimensionWeekday:
		return o.WeekdayBucket
	case DimensionGroup:
		return o.OwnershipGroup
	}
	return ""
}

// PartitionRefs returns the partitions the order currently belongs to.
func (o Order) PartitionRefs() []PartitionRef {
	refs := make([]PartitionRef, 0, len(PartitionDimensions))
	for _, dim := range PartitionDimensions {
		refs = append(refs, PartitionRef{Dimension: dim, Key: SanitizePartitionKey(o.PartitionValue(dim))})
	}
	return refs
}

// PartitionDiff computes where a row must be written and where it must be removed when an
// order moves from before to after. A nil before means the order is new; a nil after means
// it is being deleted. Every current partition is upserted so replicas carry fresh columns.
func PartitionDiff(before, after *Order) (upserts []PartitionRef, removals []PartitionRef) {
	current := map[PartitionRef]bool{}
	if after != nil {
		for _, ref := range after.PartitionRefs() {
			current[ref] = true
			upserts = append(upserts, ref)
		}
	}
	if before != nil {
		for _, ref := range before.PartitionRefs() {
			if !current[ref] {
				removals = append(removals, ref)
			}
		}
	}
	return upserts, removals
}
