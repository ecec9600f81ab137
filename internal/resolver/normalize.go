package resolver

import (
	"regexp"
	"strings"
)

// Name normalization exists so that two spellings of the same storefront
// compare equal before any fuzzy scoring happens. Matching quality lives or
// dies here, not in the similarity metric, so both passes are pure functions
// with their own tests.

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	parentheticalRe = regexp.MustCompile(`\s*\(([^)]*)\)\s*`)
	separatorRe     = regexp.MustCompile(`\s*[-/]\s*`)
	punctuationRe   = regexp.MustCompile(`[^\w\s]`)
	leadingTheRe    = regexp.MustCompile(`^the\s+`)
	suffixWordRe    = regexp.MustCompile(`\s+(inc|llc|ltd|corp|co|dispensary|cannabis|club)\s*$`)
)

// NormalizeName applies the conservative pass: lowercase, trim, strip
// trailing punctuation, collapse internal whitespace. Structure is preserved
// so it is safe to use as an index key.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimRight(s, ".,;:")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return s
}

// NormalizeAggressive applies the destructive pass used for fuzzy scoring:
// parenthetical qualifiers become plain words, hyphens and slashes become
// spaces, remaining punctuation is dropped, a leading article and common
// storefront suffix words are stripped.
//
//	"The Travel Agency (SoHo)"  -> "travel agency soho"
//	"Travel Agency - SoHo"      -> "travel agency soho"
//	"My Bud 420 Inc."           -> "my bud 420"
func NormalizeAggressive(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = parentheticalRe.ReplaceAllString(s, " $1 ")
	s = separatorRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, "")
	s = leadingTheRe.ReplaceAllString(s, "")
	s = suffixWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLicense canonicalizes a license/account number for exact lookup.
// Blank and spreadsheet error values normalize to "".
func NormalizeLicense(license string) string {
	s := strings.ToUpper(strings.TrimSpace(license))
	if s == "" || s == "#N/A" || s == "NONE" {
		return ""
	}
	return s
}
