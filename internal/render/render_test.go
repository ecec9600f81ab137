package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccplatform/ar-collections/internal/domain"
)

func days(n int) *int { return &n }

func testDraft() *domain.Draft {
	return &domain.Draft{
		CustomerName: "Green Leaf",
		Tier:         domain.TierSeriouslyOverdue,
		Label:        "30+ Days Past Due",
		Invoices: []domain.Invoice{
			{InvoiceNumber: "INV-1", Amount: decimal.RequireFromString("1234.56"), DaysPastDue: days(31)},
			{InvoiceNumber: "INV-2", Amount: decimal.RequireFromString("400.00"), DaysPastDue: days(35)},
		},
		Match: &domain.MatchResult{
			Contact: &domain.Contact{PrimaryName: "Dana Reyes"},
		},
	}
}

func TestBodyIncludesInvoiceDetails(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	body, err := r.Body(testDraft())
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Dana,")
	assert.Contains(t, body, "Green Leaf")
	assert.Contains(t, body, "30+ Days Past Due")
	assert.Contains(t, body, "INV-1")
	assert.Contains(t, body, "INV-2")
	assert.Contains(t, body, "$1,234.56")
	assert.Contains(t, body, "invoices are")
}

func TestBodySingularInvoice(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	d := testDraft()
	d.Tier = domain.TierRecentlyDue
	d.Invoices = d.Invoices[:1]

	body, err := r.Body(d)
	require.NoError(t, err)
	assert.Contains(t, body, "invoice is")
	assert.NotContains(t, body, "invoices are")
}

func TestBodyWithoutContactUsesGenericGreeting(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	d := testDraft()
	d.Match = nil

	body, err := r.Body(d)
	require.NoError(t, err)
	assert.Contains(t, body, "Hi there,")
}

func TestTierToneDiffers(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	d := testDraft()
	d.Tier = domain.TierUpcoming
	upcoming, err := r.Body(d)
	require.NoError(t, err)

	d.Tier = domain.TierSeriouslyOverdue
	overdue, err := r.Body(d)
	require.NoError(t, err)

	assert.Contains(t, upcoming, "friendly note")
	assert.Contains(t, overdue, "immediate attention")
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	custom := `Custom for {{ customer_name }}, total {{ total_amount }}`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "seriously_overdue.liquid"), []byte(custom), 0644))

	r, err := New(dir)
	require.NoError(t, err)

	body, err := r.Body(testDraft())
	require.NoError(t, err)
	assert.Equal(t, "Custom for Green Leaf, total $1,634.56", body)
}
