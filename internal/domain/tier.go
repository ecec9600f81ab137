package domain

import "fmt"

// Tier enumerates the three collection urgency classes, ordered by severity.
// The tier drives which template and escalation policy a draft gets; the
// display label for the top tier is computed separately (see DynamicLabel)
// and never feeds back into tier selection.
type Tier string

const (
	// TierUpcoming covers invoices not yet due (days_past_due <= 0).
	TierUpcoming Tier = "upcoming"
	// TierRecentlyDue covers days 1..N past due (N configurable, default 29).
	TierRecentlyDue Tier = "recently_due"
	// TierSeriouslyOverdue covers everything above N. Unbounded on purpose:
	// a 500-day invoice gets the same treatment as a 31-day one apart from
	// the displayed bucket number.
	TierSeriouslyOverdue Tier = "seriously_overdue"
)

// AllTiers returns the tiers in escalation order.
func AllTiers() []Tier {
	return []Tier{TierUpcoming, TierRecentlyDue, TierSeriouslyOverdue}
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierUpcoming, TierRecentlyDue, TierSeriouslyOverdue:
		return true
	}
	return false
}

// BaseLabel returns the fixed human-readable label for the tier. The top
// tier's subject-line label is dynamic; use DynamicLabel for that.
func (t Tier) BaseLabel() string {
	switch t {
	case TierUpcoming:
		return "Coming Due"
	case TierRecentlyDue:
		return "Overdue"
	case TierSeriouslyOverdue:
		return "30+ Days Past Due"
	}
	return string(t)
}

// DynamicLabel returns the subject-line label for a given day count. For the
// top tier the bucket rounds down to the nearest ten days: 30-39 -> "30+",
// 47 -> "40+", 111 -> "110+".
func DynamicLabel(tier Tier, daysPastDue int) string {
	if tier != TierSeriouslyOverdue {
		return tier.BaseLabel()
	}
	bucket := (daysPastDue / 10) * 10
	return fmt.Sprintf("%d+ Days Past Due", bucket)
}
