// Package render produces draft email bodies from Liquid templates.
//
// Each tier has its own template so the tone can escalate with age. Operator
// supplied templates in the template directory override the built-in
// defaults; a missing or unparseable file falls back rather than blocking
// the batch.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/osteele/liquid"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
)

const upcomingTemplate = `<p>Hi {{ first_name }},</p>
<p>This is a friendly note from the PICC collections team. The following
Nabis {{ invoice_noun }} for {{ customer_name }} {{ invoice_verb }} coming due:</p>
{{ invoice_table }}
<p>No action is needed if payment is already scheduled. If anything looks
off, just reply to this email and we will sort it out.</p>
<p>Thank you!</p>`

const recentlyDueTemplate = `<p>Hi {{ first_name }},</p>
<p>Our records show the following Nabis {{ invoice_noun }} for
{{ customer_name }} {{ invoice_verb }} now past due:</p>
{{ invoice_table }}
<p>Could you let us know when we can expect payment? If payment has already
been sent, please reply with the details so we can update our records.</p>
<p>Thank you!</p>`

const seriouslyOverdueTemplate = `<p>Hi {{ first_name }},</p>
<p>The following Nabis {{ invoice_noun }} for {{ customer_name }}
{{ invoice_verb }} {{ label }} and {{ invoice_require_verb }} immediate attention:</p>
{{ invoice_table }}
<p>Please arrange payment or contact us today to discuss. Continued
non-payment may affect future order terms.</p>
<p>Thank you!</p>`

// Renderer holds the parsed per-tier templates.
type Renderer struct {
	engine    *liquid.Engine
	templates map[domain.Tier]*liquid.Template
	log       *logrus.Entry
}

// New loads templates from dir, one file per tier named <tier>.liquid.
// Tiers without a file use the built-in default.
func New(dir string) (*Renderer, error) {
	r := &Renderer{
		engine:    liquid.NewEngine(),
		templates: make(map[domain.Tier]*liquid.Template),
		log:       logrus.WithField("component", "render"),
	}

	defaults := map[domain.Tier]string{
		domain.TierUpcoming:         upcomingTemplate,
		domain.TierRecentlyDue:      recentlyDueTemplate,
		domain.TierSeriouslyOverdue: seriouslyOverdueTemplate,
	}
	for tier, fallback := range defaults {
		src := fallback
		if dir != "" {
			path := filepath.Join(dir, string(tier)+".liquid")
			if data, err := os.ReadFile(path); err == nil {
				src = string(data)
				r.log.WithFields(logrus.Fields{"tier": tier, "path": path}).Info("template override loaded")
			}
		}
		tmpl, err := r.engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", tier, err)
		}
		r.templates[tier] = tmpl
	}
	return r, nil
}

// Body renders the HTML body for a draft.
func (r *Renderer) Body(d *domain.Draft) (string, error) {
	tmpl, ok := r.templates[d.Tier]
	if !ok {
		return "", fmt.Errorf("no template for tier %q", d.Tier)
	}

	firstName := "there"
	if d.Match != nil && d.Match.Contact != nil {
		if fn := d.Match.Contact.FirstName(); fn != "" {
			firstName = fn
		}
	}

	plural := len(d.Invoices) > 1
	bindings := liquid.Bindings{
		"first_name":           firstName,
		"customer_name":        d.CustomerName,
		"label":                d.Label,
		"invoice_count":        len(d.Invoices),
		"total_amount":         domain.FormatMoney(d.TotalAmount()),
		"invoice_table":        invoiceTable(d.Invoices),
		"invoice_noun":         nounForm("invoice", plural),
		"invoice_verb":         verbForm("is", "are", plural),
		"invoice_require_verb": verbForm("requires", "require", plural),
	}

	out, err := tmpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render %s body: %w", d.Tier, err)
	}
	return out, nil
}

func invoiceTable(invoices []domain.Invoice) string {
	rows := `<table border="1" cellpadding="6" cellspacing="0">` +
		"<tr><th>Invoice</th><th>Amount</th><th>Days Past Due</th></tr>"
	for _, inv := range invoices {
		days := "-"
		if d, ok := inv.Days(); ok {
			days = fmt.Sprintf("%d", d)
		}
		rows += fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
			inv.InvoiceNumber, domain.FormatMoney(inv.Amount), days)
	}
	return rows + "</table>"
}

func nounForm(base string, plural bool) string {
	if plural {
		return base + "s"
	}
	return base
}

func verbForm(singular, plural string, isPlural bool) string {
	if isPlural {
		return plural
	}
	return singular
}
