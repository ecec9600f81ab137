package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
)

// Service implements review queue business logic: lifecycle transitions,
// bulk operations, and the audit log. Bulk operations and regeneration hold
// an internal lock so two operators cannot interleave them.
type Service struct {
	mu    sync.Mutex
	store Store
	log   *logrus.Entry
	now   func() time.Time
}

// NewService creates a queue service backed by the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		log:   logrus.WithField("component", "queue"),
		now:   time.Now,
	}
}

// Load inserts a freshly generated batch of drafts, all pending.
func (s *Service) Load(ctx context.Context, drafts []domain.Draft) error {
	for i := range drafts {
		if drafts[i].Status == "" {
			drafts[i].Status = domain.DraftPending
		}
		if drafts[i].Status != domain.DraftPending {
			return fmt.Errorf("draft %s: new drafts must enter the queue pending, got %s",
				drafts[i].ID, drafts[i].Status)
		}
	}
	if err := s.store.Insert(ctx, drafts); err != nil {
		return err
	}
	for i := range drafts {
		s.audit(ctx, drafts[i].ID, "created", fmt.Sprintf("tier=%s customer=%s", drafts[i].Tier, drafts[i].CustomerName), "")
	}
	s.log.WithField("count", len(drafts)).Info("drafts loaded into queue")
	return nil
}

// Get returns a single draft.
func (s *Service) Get(ctx context.Context, id string) (*domain.Draft, error) {
	return s.store.Get(ctx, id)
}

// List returns drafts matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Draft, error) {
	return s.store.List(ctx, f)
}

// AuditLog returns the recorded actions for one draft, oldest first.
func (s *Service) AuditLog(ctx context.Context, draftID string) ([]AuditEntry, error) {
	if _, err := s.store.Get(ctx, draftID); err != nil {
		return nil, err
	}
	return s.store.AuditLog(ctx, draftID)
}

// Approve moves a pending draft to approved. Approving twice is an error,
// not a no-op: the second operator should know the first already acted.
func (s *Service) Approve(ctx context.Context, id, actor string) (*domain.Draft, error) {
	return s.transition(ctx, id, domain.DraftApproved, StatusUpdate{Status: domain.DraftApproved}, "approved", "", actor)
}

// Reject moves a pending draft to rejected with an operator-supplied reason.
func (s *Service) Reject(ctx context.Context, id, reason, actor string) (*domain.Draft, error) {
	u := StatusUpdate{Status: domain.DraftRejected, RejectionReason: &reason}
	return s.transition(ctx, id, domain.DraftRejected, u, "rejected", reason, actor)
}

// MarkSent records a successful send of an approved draft. Sent is terminal.
func (s *Service) MarkSent(ctx context.Context, id string) (*domain.Draft, error) {
	at := s.now().UTC()
	u := StatusUpdate{Status: domain.DraftSent, SentAt: &at}
	return s.transition(ctx, id, domain.DraftSent, u, "sent", "", "")
}

// MarkFailed records a failed send attempt. Failed drafts stay visible for
// retry or manual handling rather than silently disappearing.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) (*domain.Draft, error) {
	u := StatusUpdate{Status: domain.DraftFailed, FailureReason: &reason}
	return s.transition(ctx, id, domain.DraftFailed, u, "send_failed", reason, "")
}

func (s *Service) transition(ctx context.Context, id string, next domain.DraftStatus, u StatusUpdate, action, detail, actor string) (*domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}
	if err := s.store.UpdateStatus(ctx, id, u); err != nil {
		return nil, err
	}

	d.Status = next
	if u.RejectionReason != nil {
		d.RejectionReason = *u.RejectionReason
	}
	if u.FailureReason != nil {
		d.FailureReason = *u.FailureReason
	}
	if u.SentAt != nil {
		d.SentAt = u.SentAt
	}
	s.audit(ctx, id, action, detail, actor)
	s.log.WithFields(logrus.Fields{
		"draft_id": id,
		"customer": d.CustomerName,
		"status":   next,
	}).Info("draft status changed")
	return d, nil
}

// ApproveAllPending approves every pending draft and returns the count.
// Drafts already approved, rejected, or sent are untouched.
func (s *Service) ApproveAllPending(ctx context.Context, actor string) (int, error) {
	return s.bulkApprove(ctx, ListFilter{Status: domain.DraftPending}, actor)
}

// ApproveByTier approves every pending draft in one tier.
func (s *Service) ApproveByTier(ctx context.Context, tier domain.Tier, actor string) (int, error) {
	if !tier.Valid() {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
	return s.bulkApprove(ctx, ListFilter{Status: domain.DraftPending, Tier: tier}, actor)
}

func (s *Service) bulkApprove(ctx context.Context, f ListFilter, actor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.store.List(ctx, f)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range drafts {
		if err := s.store.UpdateStatus(ctx, drafts[i].ID, StatusUpdate{Status: domain.DraftApproved}); err != nil {
			return n, err
		}
		s.audit(ctx, drafts[i].ID, "approved", "bulk approval", actor)
		n++
	}
	s.log.WithFields(logrus.Fields{"count": n, "tier": f.Tier}).Info("bulk approval complete")
	return n, nil
}

// RejectAllPending rejects every pending draft with one shared reason.
func (s *Service) RejectAllPending(ctx context.Context, reason, actor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.store.List(ctx, ListFilter{Status: domain.DraftPending})
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range drafts {
		u := StatusUpdate{Status: domain.DraftRejected, RejectionReason: &reason}
		if err := s.store.UpdateStatus(ctx, drafts[i].ID, u); err != nil {
			return n, err
		}
		s.audit(ctx, drafts[i].ID, "rejected", reason, actor)
		n++
	}
	return n, nil
}

// Regenerate discards every draft that has not been sent and loads a new
// batch. The confirm flag must be set by the caller; the queue never assumes
// a destructive intent.
func (s *Service) Regenerate(ctx context.Context, confirm bool, drafts []domain.Draft, actor string) (int, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}

	s.mu.Lock()
	removed, err := s.store.DeleteUnsent(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{
		"removed": removed,
		"new":     len(drafts),
		"actor":   actor,
	}).Warn("queue regenerated")

	if err := s.Load(ctx, drafts); err != nil {
		return removed, err
	}
	return removed, nil
}

// Summary is the operator-facing snapshot of the queue.
type Summary struct {
	Total         int                        `json:"total"`
	ByStatus      map[domain.DraftStatus]int `json:"by_status"`
	PendingByTier map[domain.Tier]int        `json:"pending_by_tier"`
	PendingAmount decimal.Decimal            `json:"pending_amount"`
	NeedsReview   int                        `json:"needs_review"`
}

// Summarize builds the queue summary from current state.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	drafts, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Total:         len(drafts),
		ByStatus:      make(map[domain.DraftStatus]int),
		PendingByTier: make(map[domain.Tier]int),
		PendingAmount: decimal.Zero,
	}
	for i := range drafts {
		d := &drafts[i]
		sum.ByStatus[d.Status]++
		if d.Status == domain.DraftPending {
			sum.PendingByTier[d.Tier]++
			sum.PendingAmount = sum.PendingAmount.Add(d.TotalAmount())
		}
		if d.NeedsManualReview() {
			sum.NeedsReview++
		}
	}
	return sum, nil
}

// audit records an action, logging rather than failing when the write does
// not stick. A transition that succeeded should not be reported as an error
// because its audit row was lost.
func (s *Service) audit(ctx context.Context, draftID, action, detail, actor string) {
	e := AuditEntry{
		DraftID: draftID,
		Action:  action,
		Detail:  detail,
		Actor:   actor,
		At:      s.now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"draft_id": draftID,
			"action":   action,
		}).Error("audit write failed")
	}
}
