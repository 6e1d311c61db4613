package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (f *fakeEvictor) Evict(socketID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, socketID)
}

func (f *fakeEvictor) evictedSockets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.evicted...)
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

func TestRegisterEvictsPriorSocketOnReconnect(t *testing.T) {
	ev := &fakeEvictor{}
	l := New(ev, time.Minute, testLogger(t))

	l.Register("ROOM1", "user1", "socket-a")
	l.Register("ROOM1", "user1", "socket-b")

	assert.Equal(t, []string{"socket-a"}, ev.evictedSockets())

	socket, ok := l.SocketFor("ROOM1", "user1")
	require.True(t, ok)
	assert.Equal(t, "socket-b", socket)
}

func TestRegisterSameSocketDoesNotEvictItself(t *testing.T) {
	ev := &fakeEvictor{}
	l := New(ev, time.Minute, testLogger(t))

	l.Register("ROOM1", "user1", "socket-a")
	l.Register("ROOM1", "user1", "socket-a")

	assert.Empty(t, ev.evictedSockets())
}

func TestTryLockJoinRejectsConcurrentJoinForSamePair(t *testing.T) {
	l := New(&fakeEvictor{}, time.Minute, testLogger(t))

	assert.True(t, l.TryLockJoin("ROOM1", "user1"))
	assert.False(t, l.TryLockJoin("ROOM1", "user1"))

	l.UnlockJoin("ROOM1", "user1")
	assert.True(t, l.TryLockJoin("ROOM1", "user1"))
}

func TestDisconnectExpiresAfterGraceWindowUnlessSuperseded(t *testing.T) {
	l := New(&fakeEvictor{}, 20*time.Millisecond, testLogger(t))
	l.Register("ROOM1", "user1", "socket-a")

	expired := make(chan struct{})
	l.Disconnect("ROOM1", "user1", "socket-a", func() { close(expired) })

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("expected grace window expiry callback to fire")
	}

	_, ok := l.SocketFor("ROOM1", "user1")
	assert.False(t, ok)
}

func TestDisconnectDoesNotExpireWhenSuperseded(t *testing.T) {
	l := New(&fakeEvictor{}, 20*time.Millisecond, testLogger(t))
	l.Register("ROOM1", "user1", "socket-a")

	expired := make(chan struct{})
	l.Disconnect("ROOM1", "user1", "socket-a", func() { close(expired) })

	l.Register("ROOM1", "user1", "socket-b")

	select {
	case <-expired:
		t.Fatal("expiry callback fired after the session was superseded")
	case <-time.After(50 * time.Millisecond):
	}

	socket, ok := l.SocketFor("ROOM1", "user1")
	require.True(t, ok)
	assert.Equal(t, "socket-b", socket)
}

func TestForgetDropsSessionImmediately(t *testing.T) {
	l := New(&fakeEvictor{}, time.Minute, testLogger(t))
	l.Register("ROOM1", "user1", "socket-a")
	l.Forget("ROOM1", "user1")

	_, ok := l.SocketFor("ROOM1", "user1")
	assert.False(t, ok)
}
