package queue

import (
	"context"
	"time"

	"github.com/piccplatform/ar-collections/internal/domain"
)

// Store defines the persistence contract for drafts and their audit log.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert persists a batch of new drafts.
	Insert(ctx context.Context, drafts []domain.Draft) error

	// Get returns a single draft. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Draft, error)

	// List returns drafts matching the filter, newest batch first.
	List(ctx context.Context, f ListFilter) ([]domain.Draft, error)

	// UpdateStatus applies a status change. The caller has already validated
	// the transition.
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) error

	// DeleteUnsent removes every draft that has not reached sent status and
	// returns how many were removed. Sent drafts stay as the send record.
	DeleteUnsent(ctx context.Context) (int, error)

	// AppendAudit records one action against a draft.
	AppendAudit(ctx context.Context, e AuditEntry) error

	// AuditLog returns the recorded actions for a draft, oldest first.
	AuditLog(ctx context.Context, draftID string) ([]AuditEntry, error)
}

// ListFilter controls filtering for draft lists. Zero-value fields match
// everything.
type ListFilter struct {
	Status      domain.DraftStatus
	Tier        domain.Tier
	NeedsReview *bool
	Limit       int
	Offset      int
}

// StatusUpdate holds the fields written alongside a status change.
// Nil pointer fields are left untouched.
type StatusUpdate struct {
	Status          domain.DraftStatus
	RejectionReason *string
	FailureReason   *string
	SentAt          *time.Time
}

// AuditEntry is one recorded action against a draft.
type AuditEntry struct {
	ID      int64     `json:"id"`
	DraftID string    `json:"draft_id"`
	Action  string    `json:"action"`
	Detail  string    `json:"detail,omitempty"`
	Actor   string    `json:"actor,omitempty"`
	At      time.Time `json:"at"`
}
