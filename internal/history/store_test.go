package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSentTimes struct {
	byName map[string]time.Time
	err    error
}

func (f *fakeSentTimes) LastSentAt(_ context.Context, customerName string) (*time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byName[customerName]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func TestStoreGuardRecentlySent(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeSentTimes{byName: map[string]time.Time{
		"green leaf": now.Add(-48 * time.Hour),
	}}
	g := NewStoreGuard(store, 7*24*time.Hour)
	g.now = func() time.Time { return now }

	recent, rec, err := g.RecentlySent(context.Background(), "Green Leaf")
	require.NoError(t, err)
	assert.True(t, recent)
	require.NotNil(t, rec)
	assert.Equal(t, now.Add(-48*time.Hour), rec.SentAt)
}

func TestStoreGuardOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeSentTimes{byName: map[string]time.Time{
		"green leaf": now.Add(-10 * 24 * time.Hour),
	}}
	g := NewStoreGuard(store, 7*24*time.Hour)
	g.now = func() time.Time { return now }

	recent, rec, err := g.RecentlySent(context.Background(), "Green Leaf")
	require.NoError(t, err)
	assert.False(t, recent)
	assert.Nil(t, rec)
}

func TestStoreGuardNeverSent(t *testing.T) {
	g := NewStoreGuard(&fakeSentTimes{}, 7*24*time.Hour)

	recent, rec, err := g.RecentlySent(context.Background(), "Harbor House")
	require.NoError(t, err)
	assert.False(t, recent)
	assert.Nil(t, rec)
}

func TestStoreGuardPropagatesError(t *testing.T) {
	g := NewStoreGuard(&fakeSentTimes{err: errors.New("db down")}, time.Hour)

	_, _, err := g.RecentlySent(context.Background(), "Green Leaf")
	assert.Error(t, err)
}
