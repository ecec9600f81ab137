// Package ingest reads the AR aging report and contact directory workbooks.
//
// Both arrive as operator-maintained Excel exports, so column order moves
// around and cell content is messy. Loaders map columns by header name,
// tolerate blanks, and skip rows with no usable identity rather than
// aborting the batch.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/piccplatform/ar-collections/internal/domain"
)

var log = logrus.WithField("component", "ingest")

// LoadAgingReport reads the aging report sheet into invoices.
func LoadAgingReport(path, sheet string) ([]domain.Invoice, error) {
	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("aging report %s has no data rows", path)
	}

	idx := headerIndex(rows[0])
	var out []domain.Invoice
	skipped := 0
	for n, row := range rows[1:] {
		inv := domain.Invoice{
			InvoiceNumber: col(row, idx, "invoice number", "invoice #", "invoice"),
			CustomerName:  col(row, idx, "customer name", "customer"),
			LicenseNumber: col(row, idx, "license number", "license #", "license"),
			Status:        parseStatus(col(row, idx, "status", "payment status")),
			Paid:          truthy(col(row, idx, "paid", "paid?")),
			EmailSent:     truthy(col(row, idx, "email sent", "email sent?")),
			Called:        truthy(col(row, idx, "called", "called?")),
			MadeContact:   truthy(col(row, idx, "made contact", "made contact?")),
			Handler:       col(row, idx, "account handler", "handler"),
			HandlerPhone:  NormalizePhone(col(row, idx, "handler phone")),
			SalesRep:      col(row, idx, "sales rep", "rep"),
			Notes:         col(row, idx, "notes"),
		}
		if inv.InvoiceNumber == "" && inv.CustomerName == "" {
			skipped++
			continue
		}

		if amt := col(row, idx, "amount", "open balance", "balance"); amt != "" {
			d, err := parseAmount(amt)
			if err != nil {
				log.WithFields(logrus.Fields{"row": n + 2, "amount": amt}).Warn("unparseable amount, treating as zero")
			} else {
				inv.Amount = d
			}
		}
		if days := col(row, idx, "days past due", "days overdue"); days != "" {
			if v, err := strconv.Atoi(strings.TrimSpace(days)); err == nil {
				inv.DaysPastDue = &v
			} else {
				log.WithFields(logrus.Fields{"row": n + 2, "days": days}).Warn("unparseable days past due")
			}
		}
		if due := col(row, idx, "due date"); due != "" {
			if t, ok := parseDate(due); ok {
				inv.DueDate = &t
			}
		}
		out = append(out, inv)
	}

	log.WithFields(logrus.Fields{
		"path":     path,
		"invoices": len(out),
		"skipped":  skipped,
	}).Info("aging report loaded")
	return out, nil
}

// LoadContacts reads the contact directory sheet.
func LoadContacts(path, sheet string) ([]domain.Contact, error) {
	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("contact directory %s has no data rows", path)
	}

	idx := headerIndex(rows[0])
	var out []domain.Contact
	for _, row := range rows[1:] {
		c := domain.Contact{
			CustomerName:  col(row, idx, "customer name", "customer"),
			LicenseNumber: col(row, idx, "license number", "license #", "license"),
			PrimaryName:   col(row, idx, "primary contact", "contact name", "name"),
			PrimaryTitle:  col(row, idx, "title"),
			PrimaryEmail:  col(row, idx, "email", "primary email"),
			PrimaryPhone:  NormalizePhone(col(row, idx, "phone", "primary phone")),
			Handler:       col(row, idx, "account handler", "handler"),
			HandlerPhone:  NormalizePhone(col(row, idx, "handler phone")),
		}
		if c.CustomerName == "" && c.LicenseNumber == "" {
			continue
		}

		source := col(row, idx, "source")
		c.Emails = splitList(col(row, idx, "additional emails", "other emails", "emails"))
		for _, p := range splitList(col(row, idx, "phones", "additional phones")) {
			c.Phones = append(c.Phones, NormalizePhone(p))
		}
		c.People = parsePeople(col(row, idx, "additional contacts", "people", "contacts"), source)
		out = append(out, c)
	}

	log.WithFields(logrus.Fields{"path": path, "contacts": len(out)}).Info("contact directory loaded")
	return out, nil
}

// LoadFallback reads the supplementary name-to-email directory.
func LoadFallback(path, sheet string) ([]domain.FallbackContact, error) {
	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	idx := headerIndex(rows[0])
	var out []domain.FallbackContact
	for _, row := range rows[1:] {
		f := domain.FallbackContact{
			CustomerName: col(row, idx, "customer name", "customer", "name"),
			Emails:       splitList(col(row, idx, "emails", "email")),
		}
		if f.CustomerName == "" || len(f.Emails) == 0 {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q from %s: %w", sheet, path, err)
	}
	return rows, nil
}

// headerIndex maps normalized header names to column positions.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if key != "" {
			idx[key] = i
		}
	}
	return idx
}

// col returns the first non-empty cell among the aliased column names.
func col(row []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "x", "1":
		return true
	}
	return false
}

func parseStatus(s string) domain.InvoiceStatus {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "enroute") || strings.Contains(lower, "en route"):
		return domain.InvoiceStatusPaymentEnroute
	case strings.Contains(lower, "expect"):
		return domain.InvoiceStatusExpectedToPay
	case strings.Contains(lower, "disput"):
		return domain.InvoiceStatusDisputed
	}
	return domain.InvoiceStatusNone
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

var dateFormats = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"1/2/06",
	"Jan 2, 2006",
	"01-02-06",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// splitList breaks a multi-value cell on newlines, semicolons, and commas.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ';' || r == ','
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parsePeople decodes a multi-line contacts cell. Each line is
// "Name - Title", optionally with a trailing email segment; a line that is
// just an address becomes a person with only an email.
func parsePeople(cell, source string) []domain.Person {
	var out []domain.Person
	for _, line := range strings.Split(cell, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p := domain.Person{Source: source}
		if strings.Contains(line, "@") && !strings.Contains(line, " ") {
			p.Email = line
			out = append(out, p)
			continue
		}

		parts := strings.Split(line, " - ")
		p.Name = strings.TrimSpace(parts[0])
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			switch {
			case strings.Contains(part, "@"):
				p.Email = part
			case p.Title == "":
				p.Title = part
			}
		}
		out = append(out, p)
	}
	return out
}
