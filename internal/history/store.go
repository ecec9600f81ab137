package history

import (
	"context"
	"time"

	"github.com/piccplatform/ar-collections/internal/resolver"
)

// SentTimes looks up the most recent send recorded for a customer.
type SentTimes interface {
	LastSentAt(ctx context.Context, customerName string) (*time.Time, error)
}

// StoreGuard answers cooldown checks from the draft store's sent rows. It is
// the fallback when Redis is not available: sends still land in the store, so
// the window holds, just without invoice detail in the record.
type StoreGuard struct {
	store    SentTimes
	cooldown time.Duration
	now      func() time.Time
}

// NewStoreGuard creates a guard over the given store.
func NewStoreGuard(store SentTimes, cooldown time.Duration) *StoreGuard {
	return &StoreGuard{store: store, cooldown: cooldown, now: time.Now}
}

// RecentlySent reports whether the customer was mailed inside the cooldown
// window, keyed the same way as the Redis guard.
func (g *StoreGuard) RecentlySent(ctx context.Context, customerName string) (bool, *Record, error) {
	sentAt, err := g.store.LastSentAt(ctx, resolver.NormalizeName(customerName))
	if err != nil {
		return false, nil, err
	}
	if sentAt == nil || g.now().Sub(*sentAt) >= g.cooldown {
		return false, nil, nil
	}
	return true, &Record{CustomerName: customerName, SentAt: *sentAt}, nil
}
