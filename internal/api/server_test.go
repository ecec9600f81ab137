package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/repository/memory"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

func newTestServer(t *testing.T, rebuild RebuildFunc) (*httptest.Server, *queue.Service) {
	t.Helper()
	q := queue.NewService(memory.NewDraftStore())
	srv := NewServer(q, rebuild)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, q
}

func seedDraft(t *testing.T, q *queue.Service, tier domain.Tier) domain.Draft {
	t.Helper()
	d := domain.Draft{
		ID:           uuid.New().String(),
		BatchID:      "batch-1",
		CustomerName: "Green Leaf",
		Tier:         tier,
		Invoices: []domain.Invoice{
			{InvoiceNumber: "INV-1", Amount: decimal.RequireFromString("100.00")},
		},
		To:      []string{"dana@greenleaf.example"},
		Subject: "PICC - Green Leaf - Nabis Invoice INV-1 - Overdue",
		Status:  domain.DraftPending,
	}
	require.NoError(t, q.Load(context.Background(), []domain.Draft{d}))
	return d
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListQueue(t *testing.T) {
	ts, q := newTestServer(t, nil)
	seedDraft(t, q, domain.TierRecentlyDue)
	seedDraft(t, q, domain.TierSeriouslyOverdue)

	resp, err := http.Get(ts.URL + "/api/queue/?tier=seriously_overdue")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Drafts []domain.Draft `json:"drafts"`
		Count  int            `json:"count"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, domain.TierSeriouslyOverdue, body.Drafts[0].Tier)
}

func TestListQueueRejectsUnknownTier(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/queue/?tier=tier_5")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveDraft(t *testing.T) {
	ts, q := newTestServer(t, nil)
	d := seedDraft(t, q, domain.TierRecentlyDue)

	resp := postJSON(t, fmt.Sprintf("%s/api/queue/%s/approve", ts.URL, d.ID), map[string]string{"actor": "alex"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.Draft
	decodeBody(t, resp, &got)
	assert.Equal(t, domain.DraftApproved, got.Status)
}

func TestApproveTwiceConflicts(t *testing.T) {
	ts, q := newTestServer(t, nil)
	d := seedDraft(t, q, domain.TierRecentlyDue)

	url := fmt.Sprintf("%s/api/queue/%s/approve", ts.URL, d.ID)
	resp := postJSON(t, url, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, url, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestApproveUnknownDraft(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/queue/nope/approve", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectRequiresReason(t *testing.T) {
	ts, q := newTestServer(t, nil)
	d := seedDraft(t, q, domain.TierRecentlyDue)

	resp := postJSON(t, fmt.Sprintf("%s/api/queue/%s/reject", ts.URL, d.ID), map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveAllByTier(t *testing.T) {
	ts, q := newTestServer(t, nil)
	seedDraft(t, q, domain.TierUpcoming)
	seedDraft(t, q, domain.TierSeriouslyOverdue)
	seedDraft(t, q, domain.TierSeriouslyOverdue)

	resp := postJSON(t, ts.URL+"/api/queue/approve-all", map[string]string{"tier": "seriously_overdue"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	decodeBody(t, resp, &body)
	assert.Equal(t, 2, body["approved"])
}

func TestApproveAllRejectsUnknownTier(t *testing.T) {
	ts, q := newTestServer(t, nil)
	d := seedDraft(t, q, domain.TierUpcoming)

	resp := postJSON(t, ts.URL+"/api/queue/approve-all", map[string]string{"tier": "tier_5"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was approved on the bad request.
	got, err := q.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftPending, got.Status)
}

func TestSummary(t *testing.T) {
	ts, q := newTestServer(t, nil)
	seedDraft(t, q, domain.TierRecentlyDue)

	resp, err := http.Get(ts.URL + "/api/queue/summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum queue.Summary
	decodeBody(t, resp, &sum)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.ByStatus[domain.DraftPending])
}

func TestRegenerateRequiresConfirm(t *testing.T) {
	ts, _ := newTestServer(t, func(context.Context) ([]domain.Draft, error) {
		return nil, nil
	})

	resp := postJSON(t, ts.URL+"/api/queue/regenerate", map[string]bool{"confirm": false})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegenerateReplacesQueue(t *testing.T) {
	fresh := domain.Draft{
		ID:           uuid.New().String(),
		CustomerName: "Harbor House",
		Tier:         domain.TierUpcoming,
		Status:       domain.DraftPending,
	}
	ts, q := newTestServer(t, func(context.Context) ([]domain.Draft, error) {
		return []domain.Draft{fresh}, nil
	})
	seedDraft(t, q, domain.TierRecentlyDue)

	resp := postJSON(t, ts.URL+"/api/queue/regenerate", map[string]bool{"confirm": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body["removed"])
	assert.Equal(t, 1, body["loaded"])

	got, err := q.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbor House", got.CustomerName)
}

func TestAuditEndpoint(t *testing.T) {
	ts, q := newTestServer(t, nil)
	d := seedDraft(t, q, domain.TierRecentlyDue)

	resp := postJSON(t, fmt.Sprintf("%s/api/queue/%s/approve", ts.URL, d.ID), map[string]string{"actor": "alex"})
	resp.Body.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/queue/%s/audit", ts.URL, d.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Audit []queue.AuditEntry `json:"audit"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Audit, 2)
	assert.Equal(t, "approved", body.Audit[1].Action)
	assert.Equal(t, "alex", body.Audit[1].Actor)
}
