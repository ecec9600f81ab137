// Package memory implements queue.Store in process memory. It backs local
// runs without a database and the service-layer tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

// DraftStore is a map-backed queue.Store. Safe for concurrent use.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]domain.Draft
	order  map[string]int
	audit  []queue.AuditEntry
	seq    int
	nextID int64
}

// NewDraftStore creates an empty in-memory store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[string]domain.Draft),
		order:  make(map[string]int),
	}
}

func (m *DraftStore) Insert(_ context.Context, drafts []domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range drafts {
		if _, ok := m.order[d.ID]; !ok {
			m.seq++
			m.order[d.ID] = m.seq
		}
		m.drafts[d.ID] = d
	}
	return nil
}

func (m *DraftStore) Get(_ context.Context, id string) (*domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, queue.ErrNotFound
	}
	return &d, nil
}

func (m *DraftStore) List(_ context.Context, f queue.ListFilter) ([]domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Draft
	for _, d := range m.drafts {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Tier != "" && d.Tier != f.Tier {
			continue
		}
		if f.NeedsReview != nil && d.NeedsManualReview() != *f.NeedsReview {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *DraftStore) UpdateStatus(_ context.Context, id string, u queue.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return queue.ErrNotFound
	}
	d.Status = u.Status
	if u.RejectionReason != nil {
		d.RejectionReason = *u.RejectionReason
	}
	if u.FailureReason != nil {
		d.FailureReason = *u.FailureReason
	}
	if u.SentAt != nil {
		d.SentAt = u.SentAt
	}
	m.drafts[id] = d
	return nil
}

func (m *DraftStore) DeleteUnsent(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, d := range m.drafts {
		if d.Status != domain.DraftSent {
			delete(m.drafts, id)
			delete(m.order, id)
			n++
		}
	}
	return n, nil
}

func (m *DraftStore) AppendAudit(_ context.Context, e queue.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.audit = append(m.audit, e)
	return nil
}

func (m *DraftStore) AuditLog(_ context.Context, draftID string) ([]queue.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.AuditEntry
	for _, e := range m.audit {
		if e.DraftID == draftID {
			out = append(out, e)
		}
	}
	return out, nil
}
