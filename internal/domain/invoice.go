package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus mirrors the free-text status column on the overdue sheet.
type InvoiceStatus string

const (
	InvoiceStatusNone           InvoiceStatus = ""
	InvoiceStatusExpectedToPay  InvoiceStatus = "expected_to_pay"
	InvoiceStatusPaymentEnroute InvoiceStatus = "payment_enroute"
	InvoiceStatusDisputed       InvoiceStatus = "disputed"
)

// SkipReason explains why an invoice was excluded from draft generation.
// Skips are data, not errors: skipped invoices still get classified so they
// appear in reports.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipAlreadyPaid    SkipReason = "already_paid"
	SkipPaymentEnroute SkipReason = "payment_enroute"
	SkipAlreadySent    SkipReason = "email_already_sent"
	SkipNoHandler      SkipReason = "no_account_handler"
	SkipTooEarly       SkipReason = "too_far_before_due"
)

// Invoice is a single overdue invoice row, immutable once loaded. DaysPastDue
// is a pointer because the source column is sometimes blank; a nil value is
// classified as due-today with a defaulted-input flag rather than rejected.
type Invoice struct {
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	CustomerName  string          `json:"customer_name" db:"customer_name"`
	LicenseNumber string          `json:"license_number,omitempty" db:"license_number"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	DueDate       *time.Time      `json:"due_date,omitempty" db:"due_date"`
	DaysPastDue   *int            `json:"days_past_due,omitempty" db:"days_past_due"`
	Status        InvoiceStatus   `json:"status" db:"status"`

	// Lifecycle flags from the source sheet.
	Paid        bool `json:"paid" db:"paid"`
	EmailSent   bool `json:"email_sent" db:"email_sent"`
	Called      bool `json:"called" db:"called"`
	MadeContact bool `json:"made_contact" db:"made_contact"`

	// Related personnel.
	Handler      string `json:"handler,omitempty" db:"handler"`
	HandlerPhone string `json:"handler_phone,omitempty" db:"handler_phone"`
	SalesRep     string `json:"sales_rep,omitempty" db:"sales_rep"`

	Notes string `json:"notes,omitempty" db:"notes"`
}

// Days returns the days-past-due value and whether it was present. Callers
// that just need a number should treat absent as 0.
func (i Invoice) Days() (int, bool) {
	if i.DaysPastDue == nil {
		return 0, false
	}
	return *i.DaysPastDue, true
}

// AmountFormatted renders the amount as a dollar string, e.g. "$2,700.56".
func (i Invoice) AmountFormatted() string {
	return FormatMoney(i.Amount)
}

// FormatMoney renders a decimal as "$1,234.56".
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	dot := len(s) - 3 // index of '.'
	intPart, frac := s[:dot], s[dot:]
	var out []byte
	for n, c := range []byte(intPart) {
		if n > 0 && (len(intPart)-n)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	prefix := "$"
	if neg {
		prefix = "-$"
	}
	return prefix + string(out) + frac
}
