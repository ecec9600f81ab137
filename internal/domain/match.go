package domain

// MatchRung identifies which rung of the identity-matching ladder produced a
// result. Rungs are tried in order; the first success wins.
type MatchRung string

const (
	MatchExactLicenseExactName MatchRung = "exact_license_exact_name"
	MatchExactLicenseFuzzyName MatchRung = "exact_license_fuzzy_name"
	MatchExactLicenseOnly      MatchRung = "exact_license_only"
	MatchFuzzyNameOnly         MatchRung = "fuzzy_name_only"
	MatchNone                  MatchRung = "no_match"
)

// Confidence scores assigned per rung. These are fixed by policy, not tuned.
const (
	ConfidenceExactLicenseExactName = 1.00
	ConfidenceExactLicenseFuzzyName = 0.90
	ConfidenceExactLicenseOnly      = 0.80
	ConfidenceFuzzyNameOnly         = 0.60
	ConfidenceNoMatch               = 0.00
)

// RecipientSource identifies which step of the recipient cascade supplied the
// final TO list.
type RecipientSource string

const (
	RecipientFromPrimary    RecipientSource = "primary_contact"
	RecipientFromAssociated RecipientSource = "associated_contacts"
	RecipientFromFallback   RecipientSource = "fallback_directory"
	RecipientManualReview   RecipientSource = "manual_review"
)

// MatchResult is the resolver's structured verdict for one customer group:
// who it matched, how sure it is, which addresses to use, and an ordered
// audit trail of every source consulted. An empty recipient list is a
// valid, reportable outcome, never an error.
type MatchResult struct {
	InvoiceNumbers []string `json:"invoice_numbers"`
	CustomerName   string   `json:"customer_name"`

	Contact     *Contact  `json:"contact,omitempty"`
	Confidence  float64   `json:"confidence"`
	Rung        MatchRung `json:"rung"`
	FuzzyScore  float64   `json:"fuzzy_score,omitempty"`
	MatchedName string    `json:"matched_name,omitempty"`

	// ClosestCandidate is populated on no-match so reviewers get a hint
	// instead of a silent drop.
	ClosestCandidate string  `json:"closest_candidate,omitempty"`
	ClosestScore     float64 `json:"closest_score,omitempty"`

	To              []string        `json:"to"`
	CC              []string        `json:"cc"`
	Source          RecipientSource `json:"source"`
	UsedLowTrust    bool            `json:"used_low_trust,omitempty"`
	Trail           []string        `json:"trail"`
	NeedsManualWork bool            `json:"needs_manual_work"`
}

// Matched reports whether identity matching found a directory entry.
func (m MatchResult) Matched() bool { return m.Rung != MatchNone }

// AppendTrail records one audit-trail line.
func (m *MatchResult) AppendTrail(line string) {
	m.Trail = append(m.Trail, line)
}
