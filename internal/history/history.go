// Package history tracks recent sends per customer so a regenerated batch
// cannot email the same account twice inside the cooldown window.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/resolver"
)

const keyPrefix = "ar:sent:"

// Record is what gets stored against a customer after a successful send.
type Record struct {
	CustomerName   string    `json:"customer_name"`
	InvoiceNumbers []string  `json:"invoice_numbers"`
	SentAt         time.Time `json:"sent_at"`
}

// Guard is the Redis-backed cooldown check. Keys expire on their own; the
// guard never needs a cleanup pass.
type Guard struct {
	rdb      *redis.Client
	cooldown time.Duration
	log      *logrus.Entry
}

// New creates a guard with the given cooldown window.
func New(rdb *redis.Client, cooldown time.Duration) *Guard {
	return &Guard{
		rdb:      rdb,
		cooldown: cooldown,
		log:      logrus.WithField("component", "history"),
	}
}

// MarkSent records a send against the customer, starting the cooldown.
func (g *Guard) MarkSent(ctx context.Context, customerName string, invoiceNumbers []string) error {
	rec := Record{
		CustomerName:   customerName,
		InvoiceNumbers: invoiceNumbers,
		SentAt:         time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode send record: %w", err)
	}
	if err := g.rdb.Set(ctx, key(customerName), data, g.cooldown).Err(); err != nil {
		return fmt.Errorf("record send for %q: %w", customerName, err)
	}
	return nil
}

// RecentlySent reports whether the customer is still inside the cooldown
// window, and if so returns the stored record.
func (g *Guard) RecentlySent(ctx context.Context, customerName string) (bool, *Record, error) {
	data, err := g.rdb.Get(ctx, key(customerName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("check send history for %q: %w", customerName, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record should not unblock a send; treat it as recent and
		// let the key expire.
		g.log.WithError(err).WithField("customer", customerName).Warn("unreadable send record")
		return true, nil, nil
	}
	return true, &rec, nil
}

// key normalizes the customer name so storefront spelling variants share a
// cooldown entry.
func key(customerName string) string {
	return keyPrefix + resolver.NormalizeName(customerName)
}
