// Package classifier assigns collection tiers from days-past-due values.
//
// Classification is a pure function of the day count and the configured
// boundaries. The three tiers partition the integer line with no gaps and no
// overlaps; the top tier is unbounded above. An earlier five-tier ladder was
// retired because its per-decade tiers drifted out of sync with the subject
// labels; the decade bucket is now presentation only and must stay that way.
package classifier

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
)

// Sentinel errors for boundary configuration. These indicate config bugs and
// abort startup; they are never produced by invoice data.
var (
	ErrNoBoundaries  = errors.New("tier boundaries not configured")
	ErrBadBoundaries = errors.New("tier boundaries do not partition the day range")
)

// SuspiciousAgeDays is the day count above which a classification is flagged
// for review. The tier is still assigned normally; ages are flagged, never
// capped.
const SuspiciousAgeDays = 900

// DefaultMinLeadDays is the earliest days-past-due value that gets a courtesy
// notice. Invoices further out than a week before due are left alone.
const DefaultMinLeadDays = -7

// Boundaries holds the inclusive upper bound of the two lower tiers and the
// lower edge of the contact window. The top tier is unbounded.
type Boundaries struct {
	UpcomingMax    int // default 0: due today or earlier
	RecentlyDueMax int // default 29: last day of the "recently due" window
	MinLeadDays    int // default -7: zero means the default window
}

// DefaultBoundaries returns the production tier ladder.
func DefaultBoundaries() Boundaries {
	return Boundaries{UpcomingMax: 0, RecentlyDueMax: 29, MinLeadDays: DefaultMinLeadDays}
}

// Validate rejects boundary sets that would gap or overlap the integer line.
func (b Boundaries) Validate() error {
	if b.RecentlyDueMax == 0 && b.UpcomingMax == 0 {
		return ErrNoBoundaries
	}
	if b.RecentlyDueMax <= b.UpcomingMax {
		return fmt.Errorf("%w: recently-due max %d must exceed upcoming max %d",
			ErrBadBoundaries, b.RecentlyDueMax, b.UpcomingMax)
	}
	if b.MinLeadDays > b.UpcomingMax {
		return fmt.Errorf("%w: min lead days %d must not exceed upcoming max %d",
			ErrBadBoundaries, b.MinLeadDays, b.UpcomingMax)
	}
	return nil
}

// Result is the outcome of classifying a single day count.
type Result struct {
	Tier           domain.Tier `json:"tier"`
	Label          string      `json:"label"`
	DaysPastDue    int         `json:"days_past_due"`
	InputDefaulted bool        `json:"input_defaulted,omitempty"`
	SuspiciousAge  bool        `json:"suspicious_age,omitempty"`
}

// Classifier assigns tiers using a fixed set of validated boundaries.
type Classifier struct {
	bounds Boundaries
	log    *logrus.Entry
}

// New creates a classifier. Returns an error if the boundaries are invalid so
// a misconfigured run dies at startup, not mid-batch.
func New(b Boundaries) (*Classifier, error) {
	if b.MinLeadDays == 0 {
		b.MinLeadDays = DefaultMinLeadDays
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		bounds: b,
		log:    logrus.WithField("component", "classifier"),
	}, nil
}

// Classify assigns a tier to a single days-past-due value. A nil input is
// treated as 0 (due today) and flagged, never rejected: blank day columns are
// routine in the source data.
func (c *Classifier) Classify(daysPastDue *int) Result {
	days := 0
	defaulted := daysPastDue == nil
	if !defaulted {
		days = *daysPastDue
	}

	var tier domain.Tier
	switch {
	case days <= c.bounds.UpcomingMax:
		tier = domain.TierUpcoming
	case days <= c.bounds.RecentlyDueMax:
		tier = domain.TierRecentlyDue
	default:
		tier = domain.TierSeriouslyOverdue
	}

	suspicious := days >= SuspiciousAgeDays
	if suspicious {
		c.log.WithField("days_past_due", days).Warn("invoice age exceeds sanity threshold; flagging, not capping")
	}

	return Result{
		Tier:           tier,
		Label:          domain.DynamicLabel(tier, days),
		DaysPastDue:    days,
		InputDefaulted: defaulted,
		SuspiciousAge:  suspicious,
	}
}

// Classification pairs an invoice with its tier result and skip decision.
type Classification struct {
	Invoice    domain.Invoice
	Result     Result
	SkipReason domain.SkipReason
}

// Skipped reports whether the invoice is excluded from draft generation.
func (c Classification) Skipped() bool { return c.SkipReason != domain.SkipNone }

// ClassifyBatch classifies a slice of invoices, applying the skip predicates
// in order. Skipped invoices are classified anyway so tier reporting covers
// the whole batch. A bad invoice never aborts the rest of the batch.
func (c *Classifier) ClassifyBatch(invoices []domain.Invoice) []Classification {
	out := make([]Classification, 0, len(invoices))
	for _, inv := range invoices {
		cls := Classification{
			Invoice:    inv,
			Result:     c.Classify(inv.DaysPastDue),
			SkipReason: c.skipReason(inv),
		}
		if cls.Skipped() {
			c.log.WithFields(logrus.Fields{
				"invoice":  inv.InvoiceNumber,
				"customer": inv.CustomerName,
				"reason":   cls.SkipReason,
			}).Debug("invoice skipped")
		}
		out = append(out, cls)
	}
	return out
}

// skipReason returns the first applicable skip predicate, or SkipNone. A nil
// day count defaults to 0, so it never trips the lead-window check.
func (c *Classifier) skipReason(inv domain.Invoice) domain.SkipReason {
	switch {
	case inv.Paid:
		return domain.SkipAlreadyPaid
	case inv.Status == domain.InvoiceStatusPaymentEnroute:
		return domain.SkipPaymentEnroute
	case inv.EmailSent:
		return domain.SkipAlreadySent
	case inv.Handler == "" || inv.Handler == "#N/A":
		return domain.SkipNoHandler
	case inv.DaysPastDue != nil && *inv.DaysPastDue < c.bounds.MinLeadDays:
		return domain.SkipTooEarly
	}
	return domain.SkipNone
}

// TierSummary aggregates one tier's share of a classified batch.
type TierSummary struct {
	Count      int             `json:"count"`
	Actionable int             `json:"actionable"`
	Skipped    int             `json:"skipped"`
	TotalDue   decimal.Decimal `json:"total_due"`
}

// BatchSummary is a read-only roll-up of a classified batch.
type BatchSummary struct {
	TotalInvoices int                          `json:"total_invoices"`
	Actionable    int                          `json:"actionable"`
	Skipped       int                          `json:"skipped"`
	ByTier        map[domain.Tier]*TierSummary `json:"by_tier"`
	BySkipReason  map[domain.SkipReason]int    `json:"by_skip_reason"`
}

// Summarize rolls up a classified batch by tier and skip reason.
func Summarize(batch []Classification) BatchSummary {
	s := BatchSummary{
		TotalInvoices: len(batch),
		ByTier:        make(map[domain.Tier]*TierSummary),
		BySkipReason:  make(map[domain.SkipReason]int),
	}
	for _, tier := range domain.AllTiers() {
		s.ByTier[tier] = &TierSummary{TotalDue: decimal.Zero}
	}
	for _, cls := range batch {
		ts := s.ByTier[cls.Result.Tier]
		ts.Count++
		ts.TotalDue = ts.TotalDue.Add(cls.Invoice.Amount)
		if cls.Skipped() {
			ts.Skipped++
			s.Skipped++
			s.BySkipReason[cls.SkipReason]++
		} else {
			ts.Actionable++
			s.Actionable++
		}
	}
	return s
}
