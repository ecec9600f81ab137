package ingest

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone parses a raw workbook phone cell into E.164. Cells carry
// anything from "(555) 123-4567" to "555.123.4567 ext 2"; unparseable input
// comes back unchanged so the operator still sees it on the draft.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, "US")
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
