package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DraftStatus enumerates the review lifecycle of a draft.
//
// Legal transitions:
//
//	pending  -> approved | rejected
//	approved -> sent | failed
//
// Sent is terminal. Anything else is a caller bug and is reported as
// ErrInvalidTransition by the queue service.
type DraftStatus string

const (
	DraftPending  DraftStatus = "pending"
	DraftApproved DraftStatus = "approved"
	DraftRejected DraftStatus = "rejected"
	DraftSent     DraftStatus = "sent"
	DraftFailed   DraftStatus = "failed"
)

// Valid reports whether s is a known status.
func (s DraftStatus) Valid() bool {
	switch s {
	case DraftPending, DraftApproved, DraftRejected, DraftSent, DraftFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is a legal transition.
func (s DraftStatus) CanTransitionTo(next DraftStatus) bool {
	switch s {
	case DraftPending:
		return next == DraftApproved || next == DraftRejected
	case DraftApproved:
		return next == DraftSent || next == DraftFailed
	}
	return false
}

// Draft is one outbound collection message: one customer, one or more
// invoices, resolved recipients, rendered content, and a review status.
// Drafts are created once per batch generation and mutated only through the
// queue service's transition operations.
type Draft struct {
	ID           string `json:"id" db:"id"`
	BatchID      string `json:"batch_id" db:"batch_id"`
	CustomerName string `json:"customer_name" db:"customer_name"`

	Invoices []Invoice `json:"invoices"`
	Tier     Tier      `json:"tier" db:"tier"`
	Label    string    `json:"label" db:"label"`
	// MaxDaysPastDue drove the tier for the whole group.
	MaxDaysPastDue int `json:"max_days_past_due" db:"max_days_past_due"`

	To  []string `json:"to"`
	CC  []string `json:"cc"`
	BCC []string `json:"bcc,omitempty"`

	Subject  string `json:"subject" db:"subject"`
	BodyHTML string `json:"body_html" db:"body_html"`

	Match *MatchResult `json:"match,omitempty"`

	Status          DraftStatus `json:"status" db:"status"`
	RejectionReason string      `json:"rejection_reason,omitempty" db:"rejection_reason"`
	FailureReason   string      `json:"failure_reason,omitempty" db:"failure_reason"`
	SentAt          *time.Time  `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// InvoiceNumbers lists the invoice numbers covered by this draft.
func (d Draft) InvoiceNumbers() []string {
	nums := make([]string, 0, len(d.Invoices))
	for _, inv := range d.Invoices {
		nums = append(nums, inv.InvoiceNumber)
	}
	return nums
}

// TotalAmount sums the invoice amounts.
func (d Draft) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, inv := range d.Invoices {
		total = total.Add(inv.Amount)
	}
	return total
}

// SubjectInvoicePart builds "Nabis Invoice 906858" or
// "Nabis Invoices 904667 & 905055".
func (d Draft) SubjectInvoicePart() string {
	nums := d.InvoiceNumbers()
	switch len(nums) {
	case 0:
		return ""
	case 1:
		return "Nabis Invoice " + nums[0]
	}
	return "Nabis Invoices " + strings.Join(nums, " & ")
}

// BuildSubject assembles the subject line per the established pattern:
// "PICC - {customer} - {Invoice(s) ...} - {tier label}".
func (d Draft) BuildSubject() string {
	return fmt.Sprintf("PICC - %s - %s - %s", d.CustomerName, d.SubjectInvoicePart(), d.Label)
}

// NeedsManualReview reports whether the draft has no usable recipients.
func (d Draft) NeedsManualReview() bool {
	return len(d.To) == 0
}
