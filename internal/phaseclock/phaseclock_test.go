package phaseclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/store"
)

func newTestClock() *Clock {
	return New(store.NewMemoryCache(), zap.NewNop().Sugar())
}

func TestScheduleFiresOnExpireAtDeadline(t *testing.T) {
	c := newTestClock()
	fired := make(chan struct{})

	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 1, time.Now().Add(30*time.Millisecond), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onExpire to fire")
	}
}

func TestCancelPreventsExpireFromFiring(t *testing.T) {
	c := newTestClock()
	fired := make(chan struct{})

	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 1, time.Now().Add(50*time.Millisecond), func() { close(fired) })
	c.Cancel("ROOM1", domain.PhaseDrawing)

	select {
	case <-fired:
		t.Fatal("onExpire fired after Cancel")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRescheduleReplacesThePriorTimer(t *testing.T) {
	c := newTestClock()
	var firstFired, secondFired bool

	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 1, time.Now().Add(20*time.Millisecond), func() { firstFired = true })
	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 2, time.Now().Add(20*time.Millisecond), func() { secondFired = true })

	time.Sleep(150 * time.Millisecond)
	assert.False(t, firstFired, "the superseded schedule must not fire")
	assert.True(t, secondFired)
}

func TestStillScheduledReflectsCurrentRound(t *testing.T) {
	c := newTestClock()
	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 5, time.Now().Add(time.Hour), func() {})

	assert.True(t, c.StillScheduled("ROOM1", domain.PhaseDrawing, 5))
	assert.False(t, c.StillScheduled("ROOM1", domain.PhaseDrawing, 6), "a stale round number must not read as still scheduled")
}

func TestCancelRoomStopsEveryPhaseForThatRoom(t *testing.T) {
	c := newTestClock()
	var aFired, bFired bool
	c.Schedule(1, "ROOM1", domain.PhaseDrawing, 1, time.Now().Add(30*time.Millisecond), func() { aFired = true })
	c.Schedule(1, "ROOM1", domain.PhaseReveal, 1, time.Now().Add(30*time.Millisecond), func() { bFired = true })

	c.CancelRoom("ROOM1")
	time.Sleep(100 * time.Millisecond)

	assert.False(t, aFired)
	assert.False(t, bFired)
}

func TestJitterIsDeterministicPerRoom(t *testing.T) {
	require.Equal(t, jitter(42), jitter(42))
}
