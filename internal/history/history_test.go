package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, 7*24*time.Hour), mr
}

func TestRecentlySentAfterMark(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.MarkSent(ctx, "Green Leaf", []string{"INV-1", "INV-2"}))

	recent, rec, err := g.RecentlySent(ctx, "Green Leaf")
	require.NoError(t, err)
	assert.True(t, recent)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"INV-1", "INV-2"}, rec.InvoiceNumbers)
}

func TestUnknownCustomerNotRecent(t *testing.T) {
	g, _ := newTestGuard(t)

	recent, rec, err := g.RecentlySent(context.Background(), "Never Emailed")
	require.NoError(t, err)
	assert.False(t, recent)
	assert.Nil(t, rec)
}

func TestNameVariantsShareCooldown(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.MarkSent(ctx, "Green Leaf", nil))

	recent, _, err := g.RecentlySent(ctx, "  GREEN LEAF  ")
	require.NoError(t, err)
	assert.True(t, recent, "casing and whitespace must not defeat the cooldown")
}

func TestCooldownExpires(t *testing.T) {
	g, mr := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.MarkSent(ctx, "Green Leaf", nil))
	mr.FastForward(8 * 24 * time.Hour)

	recent, _, err := g.RecentlySent(ctx, "Green Leaf")
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestCorruptRecordStaysBlocked(t *testing.T) {
	g, mr := newTestGuard(t)

	mr.Set("ar:sent:green leaf", "not-json")

	recent, rec, err := g.RecentlySent(context.Background(), "Green Leaf")
	require.NoError(t, err)
	assert.True(t, recent)
	assert.Nil(t, rec)
}
