package domain

import "strings"

// SourceTrust classifies where an associated contact record came from.
// Low-trust sources are only used when nothing better exists, and their use
// is always recorded in the resolution audit trail.
type SourceTrust string

const (
	TrustHigh   SourceTrust = "high"
	TrustMedium SourceTrust = "medium"
	TrustLow    SourceTrust = "low"
)

// Person is one named contact inside a customer's record: a parsed line of a
// multi-contact cell, with its provenance label.
type Person struct {
	Name   string `json:"name,omitempty"`
	Title  string `json:"title,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
}

// Contact is a customer directory entry. A customer may have several Contact
// rows (multi-contact stores); the resolver indexes them by normalized name
// and by license number.
type Contact struct {
	CustomerName  string `json:"customer_name"`
	LicenseNumber string `json:"license_number,omitempty"`

	// Primary point of contact.
	PrimaryName  string `json:"primary_name,omitempty"`
	PrimaryTitle string `json:"primary_title,omitempty"`
	PrimaryEmail string `json:"primary_email,omitempty"`
	PrimaryPhone string `json:"primary_phone,omitempty"`

	// All known addresses/people, ordered by preference.
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
	People []Person `json:"people,omitempty"`

	Handler      string `json:"handler,omitempty"`
	HandlerPhone string `json:"handler_phone,omitempty"`
}

// FirstName extracts the primary contact's first name for greetings.
// "Janti Eisakharian - Owner" -> "Janti".
func (c Contact) FirstName() string {
	name := strings.TrimSpace(c.PrimaryName)
	if name == "" {
		return ""
	}
	return strings.Fields(name)[0]
}

// HasEmail reports whether at least one address is on file.
func (c Contact) HasEmail() bool {
	return c.PrimaryEmail != "" || len(c.Emails) > 0
}

// FallbackContact is an entry in the supplementary directory keyed by
// customer name, consulted only when the main directory yields nothing.
type FallbackContact struct {
	CustomerName string   `json:"customer_name"`
	Emails       []string `json:"emails"`
}
