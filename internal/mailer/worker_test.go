package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/repository/memory"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

type fakeRecorder struct {
	customers []string
	invoices  [][]string
	err       error
}

func (f *fakeRecorder) MarkSent(_ context.Context, customerName string, invoiceNumbers []string) error {
	f.customers = append(f.customers, customerName)
	f.invoices = append(f.invoices, invoiceNumbers)
	return f.err
}

func workerDraft(id, customer string) domain.Draft {
	return domain.Draft{
		ID:           id,
		BatchID:      "batch-1",
		CustomerName: customer,
		Tier:         domain.TierRecentlyDue,
		Invoices: []domain.Invoice{
			{InvoiceNumber: "906858", CustomerName: customer, Amount: decimal.RequireFromString("450.00")},
		},
		To:      []string{"dana@greenleaf.example"},
		Subject: "PICC - " + customer + " - Nabis Invoice 906858 - Overdue",
		Status:  domain.DraftPending,
	}
}

func newTestWorker(t *testing.T, api *fakeSES, rec SendRecorder) (*Worker, *queue.Service) {
	t.Helper()
	q := queue.NewService(memory.NewDraftStore())
	w := NewWorker(q, newTestMailer(api, false), rec, time.Minute)
	return w, q
}

func TestDrainApprovedSendsAndRecords(t *testing.T) {
	ctx := context.Background()
	api := &fakeSES{}
	rec := &fakeRecorder{}
	w, q := newTestWorker(t, api, rec)

	require.NoError(t, q.Load(ctx, []domain.Draft{
		workerDraft("d1", "Green Leaf"),
		workerDraft("d2", "Harbor House"),
	}))
	_, err := q.Approve(ctx, "d1", "ops")
	require.NoError(t, err)

	require.NoError(t, w.DrainApproved(ctx))

	sent, err := q.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DraftSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	// The pending draft stays untouched.
	pending, err := q.Get(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, domain.DraftPending, pending.Status)

	require.Len(t, rec.customers, 1)
	assert.Equal(t, "Green Leaf", rec.customers[0])
	assert.Equal(t, []string{"906858"}, rec.invoices[0])
}

func TestDrainApprovedMarksFailure(t *testing.T) {
	ctx := context.Background()
	api := &fakeSES{err: errors.New("throttled")}
	rec := &fakeRecorder{}
	w, q := newTestWorker(t, api, rec)

	require.NoError(t, q.Load(ctx, []domain.Draft{workerDraft("d1", "Green Leaf")}))
	_, err := q.Approve(ctx, "d1", "ops")
	require.NoError(t, err)

	require.NoError(t, w.DrainApproved(ctx))

	failed, err := q.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DraftFailed, failed.Status)
	assert.Contains(t, failed.FailureReason, "throttled")
	assert.Empty(t, rec.customers)
}

func TestDrainApprovedNilRecorder(t *testing.T) {
	ctx := context.Background()
	api := &fakeSES{}
	w, q := newTestWorker(t, api, nil)

	require.NoError(t, q.Load(ctx, []domain.Draft{workerDraft("d1", "Green Leaf")}))
	_, err := q.Approve(ctx, "d1", "ops")
	require.NoError(t, err)

	require.NoError(t, w.DrainApproved(ctx))

	sent, err := q.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DraftSent, sent.Status)
}
