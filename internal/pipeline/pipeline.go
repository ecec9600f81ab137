// Package pipeline turns a classified aging report into review-ready drafts.
//
// One draft is produced per customer, covering every eligible invoice in
// the batch for that customer. The tier of the group follows its oldest
// invoice; an account 40 days late on one invoice and 5 days late on
// another gets one seriously-overdue email covering both.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/classifier"
	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/history"
	"github.com/piccplatform/ar-collections/internal/render"
	"github.com/piccplatform/ar-collections/internal/resolver"
)

// RecentSendChecker is the cooldown lookup the builder consults before
// drafting. A nil checker disables the guard.
type RecentSendChecker interface {
	RecentlySent(ctx context.Context, customerName string) (bool, *history.Record, error)
}

// SkippedInvoice records one invoice excluded from the batch and why.
type SkippedInvoice struct {
	Invoice domain.Invoice    `json:"invoice"`
	Reason  domain.SkipReason `json:"reason"`
}

// SkippedCustomer records a whole group excluded by the cooldown guard.
type SkippedCustomer struct {
	CustomerName   string    `json:"customer_name"`
	InvoiceNumbers []string  `json:"invoice_numbers"`
	LastSentAt     time.Time `json:"last_sent_at,omitempty"`
}

// Result is the outcome of one batch build.
type Result struct {
	BatchID          string                  `json:"batch_id"`
	Drafts           []domain.Draft          `json:"drafts"`
	SkippedInvoices  []SkippedInvoice        `json:"skipped_invoices,omitempty"`
	SkippedCustomers []SkippedCustomer       `json:"skipped_customers,omitempty"`
	NeedsReview      int                     `json:"needs_review"`
	Tiers            classifier.BatchSummary `json:"tiers"`
}

// Builder wires the classifier, resolver, renderer, and cooldown guard into
// the batch pipeline.
type Builder struct {
	classifier *classifier.Classifier
	resolver   *resolver.Resolver
	cc         *resolver.CCBuilder
	renderer   *render.Renderer
	guard      RecentSendChecker
	log        *logrus.Entry
	now        func() time.Time
}

// NewBuilder assembles a pipeline. The guard may be nil.
func NewBuilder(c *classifier.Classifier, r *resolver.Resolver, cc *resolver.CCBuilder, rend *render.Renderer, guard RecentSendChecker) *Builder {
	return &Builder{
		classifier: c,
		resolver:   r,
		cc:         cc,
		renderer:   rend,
		guard:      guard,
		log:        logrus.WithField("component", "pipeline"),
		now:        time.Now,
	}
}

// group is the per-customer accumulation before draft assembly.
type group struct {
	customerName string
	license      string
	handler      string
	invoices     []domain.Invoice
	maxDays      int
	hasDays      bool
}

// Build runs the whole pipeline over one aging report.
func (b *Builder) Build(ctx context.Context, invoices []domain.Invoice) (*Result, error) {
	batch := b.classifier.ClassifyBatch(invoices)
	res := &Result{
		BatchID: uuid.New().String(),
		Tiers:   classifier.Summarize(batch),
	}

	groups := make(map[string]*group)
	var order []string
	for _, cls := range batch {
		if cls.Skipped() {
			res.SkippedInvoices = append(res.SkippedInvoices, SkippedInvoice{
				Invoice: cls.Invoice,
				Reason:  cls.SkipReason,
			})
			continue
		}

		key := resolver.NormalizeName(cls.Invoice.CustomerName)
		if key == "" {
			key = resolver.NormalizeLicense(cls.Invoice.LicenseNumber)
		}
		if key == "" {
			b.log.WithField("invoice", cls.Invoice.InvoiceNumber).Warn("invoice has no customer identity, dropped")
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{
				customerName: cls.Invoice.CustomerName,
				license:      cls.Invoice.LicenseNumber,
				handler:      cls.Invoice.Handler,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.invoices = append(g.invoices, cls.Invoice)
		if g.license == "" {
			g.license = cls.Invoice.LicenseNumber
		}
		if !g.hasDays || cls.Result.DaysPastDue > g.maxDays {
			g.maxDays = cls.Result.DaysPastDue
			g.hasDays = true
		}
	}

	for _, key := range order {
		g := groups[key]

		if b.guard != nil {
			recent, rec, err := b.guard.RecentlySent(ctx, g.customerName)
			if err != nil {
				return nil, fmt.Errorf("cooldown check for %q: %w", g.customerName, err)
			}
			if recent {
				skip := SkippedCustomer{
					CustomerName:   g.customerName,
					InvoiceNumbers: invoiceNumbers(g.invoices),
				}
				if rec != nil {
					skip.LastSentAt = rec.SentAt
				}
				res.SkippedCustomers = append(res.SkippedCustomers, skip)
				b.log.WithField("customer", g.customerName).Info("customer inside cooldown window, skipped")
				continue
			}
		}

		draft, err := b.buildDraft(res.BatchID, g)
		if err != nil {
			return nil, err
		}
		if draft.NeedsManualReview() {
			res.NeedsReview++
		}
		res.Drafts = append(res.Drafts, *draft)
	}

	b.log.WithFields(logrus.Fields{
		"batch_id":          res.BatchID,
		"drafts":            len(res.Drafts),
		"skipped_invoices":  len(res.SkippedInvoices),
		"skipped_customers": len(res.SkippedCustomers),
		"needs_review":      res.NeedsReview,
	}).Info("batch built")
	return res, nil
}

func (b *Builder) buildDraft(batchID string, g *group) (*domain.Draft, error) {
	tier := b.classifier.Classify(&g.maxDays)

	d := &domain.Draft{
		ID:             uuid.New().String(),
		BatchID:        batchID,
		CustomerName:   g.customerName,
		Invoices:       g.invoices,
		Tier:           tier.Tier,
		Label:          tier.Label,
		MaxDaysPastDue: g.maxDays,
		Status:         domain.DraftPending,
		CreatedAt:      b.now().UTC(),
	}

	m := b.resolver.Resolve(g.customerName, g.license, d.InvoiceNumbers())
	d.Match = m
	d.To = m.To
	d.CC = b.cc.Build(g.handler)
	d.Subject = d.BuildSubject()

	body, err := b.renderer.Body(d)
	if err != nil {
		return nil, fmt.Errorf("render draft for %q: %w", g.customerName, err)
	}
	d.BodyHTML = body
	return d, nil
}

func invoiceNumbers(invoices []domain.Invoice) []string {
	nums := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		nums = append(nums, inv.InvoiceNumber)
	}
	return nums
}
