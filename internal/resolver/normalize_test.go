package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Green Leaf  ", "green leaf"},
		{"GREEN LEAF", "green leaf"},
		{"Green Leaf.", "green leaf"},
		{"Green   Leaf", "green leaf"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeAggressive(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Green Leaf (Main St.)", "green leaf main st"},
		{"The Green Leaf", "green leaf"},
		{"Green Leaf, LLC", "green leaf"},
		{"Green-Leaf / Downtown", "green leaf downtown"},
		{"Happy Valley Dispensary", "happy valley"},
		{"Happy Valley Cannabis", "happy valley"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAggressive(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeLicense(t *testing.T) {
	assert.Equal(t, "C10-0000123-LIC", NormalizeLicense(" c10-0000123-lic "))
	assert.Equal(t, "", NormalizeLicense("#N/A"))
	assert.Equal(t, "", NormalizeLicense("none"))
	assert.Equal(t, "", NormalizeLicense(""))
}
