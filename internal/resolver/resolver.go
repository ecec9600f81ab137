// Package resolver matches invoice customer identities against the contact
// directory and selects the recipients for each outbound draft.
//
// Two independent cascades compose:
//
//  1. Identity matching: which directory entries belong to this customer.
//     Rungs are tried in order, first success wins:
//     exact license + exact name (1.00), exact license + fuzzy name (0.90),
//     exact license only (0.80), fuzzy name only (0.60), no match (0.00).
//  2. Recipient selection: which addresses to actually use, independent of
//     the identity confidence: primary, plus billing/AP when present, then
//     trust-filtered associated contacts, then the fallback directory, then
//     an explicit manual-review marker. Addresses are never invented.
//
// Both cascades append to the MatchResult audit trail so any resolved (or
// unresolved) recipient can be explained after the fact. Missing or
// malformed data is represented as empty collections plus a trail entry,
// the resolver has no error paths for data quality.
package resolver

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy name match.
// Tuned against known storefront variations; "Green Leaf (Main St.)" vs
// "Green Leaf Main Street" scores well above it after normalization.
const DefaultFuzzyThreshold = 0.70

// Options configures a Resolver. The struct is passed at construction; the
// resolver reads no ambient globals.
type Options struct {
	// FuzzyThreshold overrides DefaultFuzzyThreshold when > 0.
	FuzzyThreshold float64
	// HighTrustSources and LowTrustSources classify associated-contact
	// provenance labels. Unknown labels are medium trust.
	HighTrustSources []string
	LowTrustSources  []string
	// Fallback is the supplementary name-keyed directory consulted when the
	// main directory yields no usable address.
	Fallback []domain.FallbackContact
}

// nameCandidate is one directory entry prepared for fuzzy scanning.
type nameCandidate struct {
	raw     string
	contact *domain.Contact
}

type fallbackCandidate struct {
	raw    string
	norm   string
	emails []string
}

// Resolver resolves invoice groups against a pre-indexed contact directory.
// Build one per batch; the directory is indexed once at construction.
type Resolver struct {
	opts      Options
	threshold float64

	byLicense  map[string][]*domain.Contact
	byName     map[string][]*domain.Contact
	candidates []nameCandidate
	fallback   []fallbackCandidate

	lowTrust  map[string]bool
	highTrust map[string]bool

	log *logrus.Entry
}

// New builds a resolver over the given directory.
func New(contacts []domain.Contact, opts Options) *Resolver {
	r := &Resolver{
		opts:      opts,
		threshold: opts.FuzzyThreshold,
		byLicense: make(map[string][]*domain.Contact),
		byName:    make(map[string][]*domain.Contact),
		lowTrust:  make(map[string]bool),
		highTrust: make(map[string]bool),
		log:       logrus.WithField("component", "resolver"),
	}
	if r.threshold <= 0 {
		r.threshold = DefaultFuzzyThreshold
	}
	for _, s := range opts.LowTrustSources {
		r.lowTrust[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, s := range opts.HighTrustSources {
		r.highTrust[strings.ToLower(strings.TrimSpace(s))] = true
	}

	for i := range contacts {
		c := &contacts[i]
		if key := NormalizeLicense(c.LicenseNumber); key != "" {
			r.byLicense[key] = append(r.byLicense[key], c)
		}
		name := strings.TrimSpace(c.CustomerName)
		if name == "" {
			continue
		}
		key := NormalizeName(name)
		r.byName[key] = append(r.byName[key], c)
		r.candidates = append(r.candidates, nameCandidate{raw: name, contact: c})
	}
	for _, f := range opts.Fallback {
		name := strings.TrimSpace(f.CustomerName)
		if name == "" || len(f.Emails) == 0 {
			continue
		}
		r.fallback = append(r.fallback, fallbackCandidate{
			raw:    name,
			norm:   NormalizeName(name),
			emails: f.Emails,
		})
	}

	r.log.WithFields(logrus.Fields{
		"contacts":      len(contacts),
		"license_keys":  len(r.byLicense),
		"name_keys":     len(r.byName),
		"fallback_size": len(r.fallback),
	}).Info("contact directory indexed")
	return r
}

// Resolve runs identity matching and recipient selection for one invoice
// group and returns the combined verdict.
func (r *Resolver) Resolve(customerName, license string, invoiceNumbers []string) *domain.MatchResult {
	m := r.Match(customerName, license, invoiceNumbers)
	r.ResolveRecipients(m)
	return m
}

// Match runs the identity ladder only. The returned result has no recipients
// yet; pass it to ResolveRecipients for the cascade.
func (r *Resolver) Match(customerName, license string, invoiceNumbers []string) *domain.MatchResult {
	m := &domain.MatchResult{
		InvoiceNumbers: invoiceNumbers,
		CustomerName:   strings.TrimSpace(customerName),
		Rung:           domain.MatchNone,
		Confidence:     domain.ConfidenceNoMatch,
	}

	licenseKey := NormalizeLicense(license)
	nameKey := NormalizeName(m.CustomerName)
	if licenseKey == "" && nameKey == "" {
		m.AppendTrail("invoice has no customer name and no license number")
		return m
	}

	if licenseKey != "" {
		if found := r.matchByLicense(m, licenseKey, nameKey); found {
			return m
		}
	}
	if nameKey != "" {
		if found := r.matchByName(m, nameKey, licenseKey); found {
			return m
		}
	}

	// No rung succeeded: surface the nearest near-miss as a hint, never drop
	// it silently.
	if best, score := r.closestCandidate(m.CustomerName); best != "" {
		m.ClosestCandidate = best
		m.ClosestScore = score
		m.AppendTrail(fmt.Sprintf("no match; closest directory entry %q at %.3f", best, score))
	} else {
		m.AppendTrail("no match; directory has no comparable entries")
	}
	r.log.WithFields(logrus.Fields{
		"customer": m.CustomerName,
		"closest":  m.ClosestCandidate,
	}).Warn("customer unmatched, flagged for manual review")
	return m
}

// matchByLicense covers the top three rungs of the ladder.
func (r *Resolver) matchByLicense(m *domain.MatchResult, licenseKey, nameKey string) bool {
	entries, ok := r.byLicense[licenseKey]
	if !ok {
		m.AppendTrail(fmt.Sprintf("license %q not in directory", licenseKey))
		return false
	}

	// Rung 1: exact license + exact normalized name.
	for _, c := range entries {
		if NormalizeName(c.CustomerName) == nameKey && nameKey != "" {
			m.Contact = c
			m.Confidence = domain.ConfidenceExactLicenseExactName
			m.Rung = domain.MatchExactLicenseExactName
			m.FuzzyScore = 1.0
			m.MatchedName = c.CustomerName
			m.AppendTrail(fmt.Sprintf("exact license and exact name match: %q", c.CustomerName))
			return true
		}
	}

	// Rung 2: exact license + fuzzy name above threshold.
	var best *domain.Contact
	bestScore := 0.0
	for _, c := range entries {
		if score := Similarity(m.CustomerName, c.CustomerName); score > bestScore {
			bestScore, best = score, c
		}
	}
	if best != nil && bestScore >= r.threshold {
		m.Contact = best
		m.Confidence = domain.ConfidenceExactLicenseFuzzyName
		m.Rung = domain.MatchExactLicenseFuzzyName
		m.FuzzyScore = bestScore
		m.MatchedName = best.CustomerName
		m.AppendTrail(fmt.Sprintf("exact license match; name fuzzy-matched %q at %.3f", best.CustomerName, bestScore))
		return true
	}

	// Rung 3: license alone still identifies the account.
	if primary := selectPrimary(entries); primary != nil {
		m.Contact = primary
		m.Confidence = domain.ConfidenceExactLicenseOnly
		m.Rung = domain.MatchExactLicenseOnly
		m.MatchedName = primary.CustomerName
		m.AppendTrail(fmt.Sprintf("license match only; best name candidate %q scored %.3f, below threshold", m.CustomerName, bestScore))
		return true
	}
	return false
}

// matchByName covers rung 4: exact or fuzzy name without a license hit.
func (r *Resolver) matchByName(m *domain.MatchResult, nameKey, licenseKey string) bool {
	if entries, ok := r.byName[nameKey]; ok {
		if primary := selectPrimary(entries); primary != nil {
			m.Contact = primary
			m.Confidence = domain.ConfidenceFuzzyNameOnly
			m.Rung = domain.MatchFuzzyNameOnly
			m.FuzzyScore = 1.0
			m.MatchedName = primary.CustomerName
			if licenseKey != "" {
				m.AppendTrail(fmt.Sprintf("exact name match %q; license %q unknown to directory", primary.CustomerName, licenseKey))
			} else {
				m.AppendTrail(fmt.Sprintf("exact name match %q; no license number available", primary.CustomerName))
			}
			return true
		}
	}

	var best *domain.Contact
	bestName := ""
	bestScore := 0.0
	for _, cand := range r.candidates {
		if score := Similarity(m.CustomerName, cand.raw); score > bestScore {
			bestScore, best, bestName = score, cand.contact, cand.raw
		}
	}
	if best != nil && bestScore >= r.threshold {
		m.Contact = best
		m.Confidence = domain.ConfidenceFuzzyNameOnly
		m.Rung = domain.MatchFuzzyNameOnly
		m.FuzzyScore = bestScore
		m.MatchedName = bestName
		m.AppendTrail(fmt.Sprintf("fuzzy name match %q at %.3f", bestName, bestScore))
		return true
	}
	return false
}

func (r *Resolver) closestCandidate(customerName string) (string, float64) {
	best, bestScore := "", 0.0
	for _, cand := range r.candidates {
		if score := Similarity(customerName, cand.raw); score > bestScore {
			bestScore, best = score, cand.raw
		}
	}
	return best, bestScore
}

// ResolveRecipients applies the recipient-selection cascade to a match
// result, populating To, Source, and the audit trail. The cascade never
// fails; the worst outcome is an empty list plus a manual-review marker.
func (r *Resolver) ResolveRecipients(m *domain.MatchResult) {
	var to []string

	if c := m.Contact; c != nil {
		m.AppendTrail(fmt.Sprintf("directory entry %q selected for recipients", c.CustomerName))

		if c.PrimaryEmail != "" {
			to = appendAddr(to, c.PrimaryEmail)
			m.AppendTrail("primary contact: " + c.PrimaryEmail)
		}
		for _, be := range billingEmails(c) {
			if !containsAddr(to, be) {
				to = appendAddr(to, be)
				m.AppendTrail("billing/AP contact added alongside primary: " + be)
			}
		}

		if len(to) == 0 {
			m.AppendTrail("no primary or billing address; consulting associated contacts")
			trusted, untrusted := r.splitByTrust(c)
			for _, e := range trusted {
				if !containsAddr(to, e) {
					to = appendAddr(to, e)
					m.AppendTrail("associated contact (trusted source): " + e)
				}
			}
			if len(to) == 0 {
				for _, e := range untrusted {
					if !containsAddr(to, e) {
						to = appendAddr(to, e)
						m.UsedLowTrust = true
						m.AppendTrail("associated contact (LOW TRUST source, verify before send): " + e)
					}
				}
			}
			if len(to) > 0 {
				m.Source = domain.RecipientFromAssociated
			}
		} else {
			m.Source = domain.RecipientFromPrimary
		}
	}

	if len(to) == 0 && m.CustomerName != "" {
		m.AppendTrail("consulting fallback directory")
		if emails, matched := r.lookupFallback(m.CustomerName); len(emails) > 0 {
			for _, e := range emails {
				if !containsAddr(to, e) {
					to = appendAddr(to, e)
				}
			}
			m.Source = domain.RecipientFromFallback
			m.AppendTrail(fmt.Sprintf("fallback directory match %q: %s", matched, strings.Join(emails, ", ")))
		} else {
			m.AppendTrail("no fallback directory match")
		}
	}

	if len(to) == 0 {
		m.Source = domain.RecipientManualReview
		m.NeedsManualWork = true
		m.AppendTrail("no address from any source; manual entry required")
	}
	m.To = to
}

// splitByTrust partitions the contact's associated people into trusted
// (high + medium) and low-trust address lists. When no person carries a
// source label at all, the contact's plain email list is treated as medium
// trust rather than discarded.
func (r *Resolver) splitByTrust(c *domain.Contact) (trusted, untrusted []string) {
	for _, p := range c.People {
		if p.Email == "" {
			continue
		}
		if r.sourceTrust(p.Source) == domain.TrustLow {
			untrusted = append(untrusted, p.Email)
		} else {
			trusted = append(trusted, p.Email)
		}
	}
	if len(trusted) == 0 && len(untrusted) == 0 {
		trusted = append(trusted, c.Emails...)
	}
	return trusted, untrusted
}

// sourceTrust classifies a provenance label. Unknown labels are medium: we
// neither prefer nor quarantine sources we have no policy for.
func (r *Resolver) sourceTrust(source string) domain.SourceTrust {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return domain.TrustMedium
	}
	if r.lowTrust[s] {
		return domain.TrustLow
	}
	if r.highTrust[s] {
		return domain.TrustHigh
	}
	return domain.TrustMedium
}

// lookupFallback resolves the supplementary directory by exact normalized
// name first, then the same fuzzy metric as the identity ladder.
func (r *Resolver) lookupFallback(customerName string) ([]string, string) {
	nameKey := NormalizeName(customerName)
	for _, f := range r.fallback {
		if f.norm == nameKey {
			return f.emails, f.raw
		}
	}
	var best *fallbackCandidate
	bestScore := 0.0
	for i := range r.fallback {
		if score := Similarity(customerName, r.fallback[i].raw); score > bestScore {
			bestScore, best = score, &r.fallback[i]
		}
	}
	if best != nil && bestScore >= r.threshold {
		return best.emails, best.raw
	}
	return nil, ""
}

// selectPrimary picks the best contact row when a customer has several,
// ranked by how relevant the listed role is for collections mail.
func selectPrimary(entries []*domain.Contact) *domain.Contact {
	if len(entries) == 0 {
		return nil
	}
	best := entries[0]
	bestScore := arRelevance(best)
	for _, c := range entries[1:] {
		if score := arRelevance(c); score > bestScore {
			bestScore, best = score, c
		}
	}
	return best
}

func arRelevance(c *domain.Contact) int {
	combined := strings.ToLower(c.PrimaryName + " " + c.PrimaryTitle)
	switch {
	case strings.Contains(combined, "(ap)") || strings.Contains(combined, "accounts payable"):
		return 100
	case strings.Contains(combined, "accounting") || strings.Contains(combined, "invoic"):
		return 90
	case strings.Contains(combined, "finance") || strings.Contains(combined, "billing"):
		return 80
	case strings.Contains(combined, "owner"):
		return 50
	case strings.Contains(combined, "manager") || hasWord(combined, "gm"):
		return 40
	}
	return 10
}

// billingEmails collects addresses whose role or local part marks them as
// billing/AP, so they ride along with the primary recipient.
func billingEmails(c *domain.Contact) []string {
	var out []string
	for _, p := range c.People {
		if p.Email == "" {
			continue
		}
		combined := strings.ToLower(p.Name + " " + p.Title)
		if strings.Contains(combined, "(ap)") || hasWord(combined, "ap") ||
			strings.Contains(combined, "accounts payable") ||
			strings.Contains(combined, "billing") ||
			strings.Contains(combined, "accounting") ||
			strings.Contains(combined, "finance") ||
			strings.Contains(combined, "invoic") {
			out = append(out, p.Email)
		}
	}
	for _, e := range c.Emails {
		lower := strings.ToLower(e)
		for _, prefix := range []string{"ap@", "accounting@", "invoices@", "billing@"} {
			if strings.HasPrefix(lower, prefix) && !containsAddr(out, e) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// hasWord reports whether w appears as a whole whitespace-delimited word.
// Substring checks are too loose for two-letter role markers like "ap".
func hasWord(s, w string) bool {
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, ".,;:()-") == w {
			return true
		}
	}
	return false
}

func appendAddr(list []string, addr string) []string {
	return append(list, strings.TrimSpace(addr))
}

func containsAddr(list []string, addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, a := range list {
		if strings.ToLower(strings.TrimSpace(a)) == addr {
			return true
		}
	}
	return false
}
