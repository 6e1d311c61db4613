package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

func TestMemoryCacheSetGetRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.SetPhase(ctx, "ROOM1", PhaseSnapshot{RoundPhase: domain.PhaseDrawing, Round: 3}))

	snap, err := c.GetPhase(ctx, "ROOM1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.PhaseDrawing, snap.RoundPhase)
	assert.Equal(t, 3, snap.Round)
}

func TestMemoryCacheGetPhaseMissReturnsNilNotError(t *testing.T) {
	c := NewMemoryCache()
	snap, err := c.GetPhase(context.Background(), "unknown-room")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMemoryCacheInvalidateDropsBothKeys(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.SetPhase(ctx, "ROOM1", PhaseSnapshot{RoundPhase: domain.PhaseDrawing}))
	require.NoError(t, c.SetRoomID(ctx, "ROOM1", 42))

	require.NoError(t, c.Invalidate(ctx, "ROOM1"))

	snap, err := c.GetPhase(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, ok, err := c.GetRoomID(ctx, "ROOM1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEntriesExpireAfterTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.SetRoomID(ctx, "ROOM1", 7))

	// Directly age the entry past TTL rather than sleeping for the real
	// 10s cacheTTL.
	c.mu.Lock()
	entry := c.ids["ROOM1"]
	entry.expires = time.Now().Add(-time.Second)
	c.ids["ROOM1"] = entry
	c.mu.Unlock()

	_, ok, err := c.GetRoomID(ctx, "ROOM1")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries must not be returned")
}
